package wizard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/model"
)

// Value paths with behaviour attached to them.
const (
	FieldUserID    = "userId"
	FieldUsername  = "username"
	FieldDOB       = "dob"
	FieldAge       = "age"
	FieldGender    = "gender"
	FieldLanguages = "languages"
	FieldDocument  = "document"
	FieldPhoto     = "photo"
	FieldAddresses = "addresses"
)

// userValues flattens a fetched user into form values.
func userValues(user entity.User) map[string]any {
	values := map[string]any{
		FieldUserID:   user.UserID,
		FieldUsername: user.Username,
		FieldDOB:      user.DOB,
		FieldGender:   string(user.Gender),
	}
	if user.DOB != "" {
		values[FieldAge] = user.Age
	}
	if len(user.Languages) > 0 {
		values[FieldLanguages] = append([]string(nil), user.Languages...)
	}

	addresses := make([]any, 0, len(user.Addresses))
	for _, addr := range user.Addresses {
		entry := map[string]any{
			"type":         addr.Type,
			"addressLine1": addr.AddressLine1,
			"addressLine2": addr.AddressLine2,
			"country":      addr.Country,
			"state":        addr.State,
			"city":         addr.City,
		}
		if addr.Pincode != 0 {
			entry["pincode"] = addr.Pincode
		}
		addresses = append(addresses, entry)
	}
	values[FieldAddresses] = addresses
	return values
}

// seedRepeatables makes sure every repeatable section starts with exactly
// one entry when it has none.
func seedRepeatables(form model.Form, values map[string]any) {
	for _, section := range form.Sections {
		if !section.Repeatable {
			continue
		}
		if entries, ok := values[section.Key].([]any); ok && len(entries) > 0 {
			continue
		}
		values[section.Key] = []any{map[string]any{}}
	}
}

// assembleUser builds the entity payload from form values and the persisted
// documents produced by the pipeline.
func assembleUser(id string, values *Values, docs []stagedDocument, today string) (entity.User, error) {
	user := entity.User{
		ID:        id,
		UserID:    values.String(FieldUserID),
		Username:  strings.TrimSpace(values.String(FieldUsername)),
		DOB:       values.String(FieldDOB),
		Gender:    entity.Gender(values.String(FieldGender)),
		Documents: []entity.Document{},
		Addresses: []entity.Address{},
		CreatedAt: today,
	}
	if raw, ok := values.Get(FieldAge); ok && raw != nil {
		age, err := toInt(raw)
		if err != nil {
			return entity.User{}, fmt.Errorf("wizard: age: %w", err)
		}
		user.Age = age
	}
	if raw, ok := values.Get(FieldLanguages); ok {
		user.Languages = append([]string(nil), model.StringSlice(raw)...)
	}

	for i, raw := range values.Entries(FieldAddresses) {
		entry, _ := raw.(map[string]any)
		addr, err := toAddress(entry)
		if err != nil {
			return entity.User{}, fmt.Errorf("wizard: addresses.%d: %w", i, err)
		}
		user.Addresses = append(user.Addresses, addr)
	}

	for _, doc := range docs {
		switch doc.field {
		case FieldDocument:
			user.Documents = append(user.Documents, doc.document)
		case FieldPhoto:
			photo := doc.document
			user.Photo = &photo
		}
	}
	return user, nil
}

func toAddress(entry map[string]any) (entity.Address, error) {
	str := func(key string) string {
		if s, ok := entry[key].(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}
	addr := entity.Address{
		Type:         str("type"),
		AddressLine1: str("addressLine1"),
		AddressLine2: str("addressLine2"),
		Country:      str("country"),
		State:        str("state"),
		City:         str("city"),
	}
	if raw, ok := entry["pincode"]; ok && raw != nil && raw != "" {
		pin, err := toInt(raw)
		if err != nil {
			return entity.Address{}, fmt.Errorf("pincode: %w", err)
		}
		addr.Pincode = pin
	}
	return addr, nil
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported number %T", value)
	}
}
