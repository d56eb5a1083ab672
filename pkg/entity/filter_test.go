package entity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	users := []User{
		{UserID: "U1aB", Username: "Alice", DOB: "2000-06-15", Age: 24, Gender: GenderFemale},
		{UserID: "U2cD", Username: "bob", DOB: "1990-01-02", Age: 34, Gender: GenderMale},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Alice", "bob"}},
		{"ALI", []string{"Alice"}},
		{"34", []string{"bob"}},
		{"2000-06", []string{"Alice"}},
		{"u2cd", []string{"bob"}},
		{"female", []string{"Alice"}},
		{"male", []string{"Alice", "bob"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		got := []string{}
		for _, u := range Filter(users, tt.query) {
			got = append(got, u.Username)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("query %q mismatch (-want +got):\n%s", tt.query, diff)
		}
	}
}

func TestLanguagesSummary(t *testing.T) {
	if got := (User{Languages: []string{"Hindi", "English"}}).LanguagesSummary(); got != "Hindi | English" {
		t.Fatalf("two languages: %q", got)
	}
	if got := (User{Languages: []string{"Hindi", "English", "Tamil"}}).LanguagesSummary(); got != "3 Languages" {
		t.Fatalf("three languages: %q", got)
	}
	if got := (User{}).LanguagesSummary(); got != "" {
		t.Fatalf("none: %q", got)
	}
}
