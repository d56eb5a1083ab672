package entity

import (
	"fmt"
	"strings"
)

// DateLayout is the wire format for dates (dob, uploadedAt, createdAt).
const DateLayout = "2006-01-02"

// Gender enumerates the accepted gender values.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Valid reports whether g is one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// Document is a server-acknowledged file reference.
type Document struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	UploadedAt string `json:"uploadedAt"`
}

// Address is one entry of the repeatable address section.
type Address struct {
	Type         string `json:"type,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	Country      string `json:"country,omitempty"`
	State        string `json:"state,omitempty"`
	City         string `json:"city,omitempty"`
	Pincode      int    `json:"pincode,omitempty"`
}

// User is the entity persisted by the backend.
type User struct {
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	DOB       string     `json:"dob"`
	Age       int        `json:"age"`
	Gender    Gender     `json:"gender"`
	Languages []string   `json:"languages,omitempty"`
	Documents []Document `json:"document"`
	Photo     *Document  `json:"photo,omitempty"`
	Addresses []Address  `json:"addresses"`
	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

// LanguagesSummary condenses the language list for table display: more than
// two languages collapse into a count.
func (u User) LanguagesSummary() string {
	if len(u.Languages) > 2 {
		return fmt.Sprintf("%d Languages", len(u.Languages))
	}
	return strings.Join(u.Languages, " | ")
}
