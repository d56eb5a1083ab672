package server

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

// RequestValidator plugs go-playground/validator into echo.
type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("isodate", isoDateValidator); err != nil {
		return nil
	}
	return &RequestValidator{v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return fieldErrors(verrs)
	}
	return nil
}

func isoDateValidator(fl validator.FieldLevel) bool {
	_, err := entity.ParseDate(fl.Field().String())
	return err == nil
}

// userRequest carries the rules applied to create and update bodies.
type userRequest struct {
	Username  string         `json:"username" validate:"required"`
	DOB       string         `json:"dob" validate:"required,isodate"`
	Gender    string         `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	Documents []documentRule `json:"document" validate:"dive"`
	Photo     *documentRule  `json:"photo" validate:"omitempty"`
	Addresses []addressRule  `json:"addresses" validate:"dive"`
}

type documentRule struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"omitempty,url"`
}

type addressRule struct {
	Pincode int `json:"pincode" validate:"gte=0"`
}

func requestFor(user entity.User) *userRequest {
	req := &userRequest{
		Username: strings.TrimSpace(user.Username),
		DOB:      user.DOB,
		Gender:   string(user.Gender),
	}
	for _, doc := range user.Documents {
		req.Documents = append(req.Documents, documentRule{Name: doc.Name, URL: doc.URL})
	}
	if user.Photo != nil {
		req.Photo = &documentRule{Name: user.Photo.Name, URL: user.Photo.URL}
	}
	for _, addr := range user.Addresses {
		req.Addresses = append(req.Addresses, addressRule{Pincode: addr.Pincode})
	}
	return req
}

// fieldErrors flattens validator errors into one readable message.
type fieldErrors validator.ValidationErrors

func (e fieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s failed %q", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return "invalid user: " + strings.Join(parts, ", ")
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
