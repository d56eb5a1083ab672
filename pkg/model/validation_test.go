package model

import (
	"errors"
	"testing"
	"time"
)

func TestFieldSpecValidate(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	form := UserForm()
	lookup := func(path string) FieldSpec {
		t.Helper()
		field, _, ok := form.Lookup(path)
		if !ok {
			t.Fatalf("field %s missing", path)
		}
		return field
	}

	tests := []struct {
		name    string
		field   FieldSpec
		value   any
		wantErr bool
	}{
		{"required text missing", lookup("username"), "  ", true},
		{"text ok", lookup("username"), "Alice", false},
		{"dob in range", lookup("dob"), "2000-06-15", false},
		{"dob too young", lookup("dob"), "2010-01-01", true},
		{"dob too old", lookup("dob"), "1960-01-01", true},
		{"dob malformed", lookup("dob"), "15/06/2000", true},
		{"derived skipped", lookup("age"), "abc", false},
		{"select ok", lookup("gender"), "FEMALE", false},
		{"select unknown", lookup("gender"), "X", true},
		{"select required", lookup("gender"), nil, true},
		{"multiselect optional empty", lookup("languages"), nil, false},
		{"multiselect ok", lookup("languages"), []any{"Hindi", "English"}, false},
		{"multiselect unknown", lookup("languages"), []string{"Klingon"}, true},
		{"pincode ok", lookup("addresses.0.pincode"), "560001", false},
		{"pincode too long", lookup("addresses.0.pincode"), 1234567, true},
		{"pincode not number", lookup("addresses.0.pincode"), "abc", true},
		{"optional number empty", lookup("addresses.0.pincode"), "", false},
		{"optional file empty", lookup("document"), nil, false},
		{"required file empty", FieldSpec{Name: "f", Kind: KindFile, Required: true}, []string{}, true},
		{"number bounds", FieldSpec{Name: "n", Kind: KindNumber, Min: "1", Max: "5"}, 7, true},
		{"text max length", FieldSpec{Name: "t", Kind: KindText, MaxLength: 3}, "abcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate(tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				if verr.Field != tt.field.Name {
					t.Fatalf("field mismatch: %s", verr.Field)
				}
			}
		})
	}
}

func TestFieldSpecAccepts(t *testing.T) {
	docs := FieldSpec{Accept: ".pdf,.doc,.docx"}
	images := FieldSpec{Accept: "image/*"}
	open := FieldSpec{}

	cases := []struct {
		field FieldSpec
		name  string
		want  bool
	}{
		{docs, "cv.PDF", true},
		{docs, "cv.docx", true},
		{docs, "photo.png", false},
		{images, "me.png", true},
		{images, "me.jpg", true},
		{images, "cv.pdf", false},
		{open, "whatever.bin", true},
		{FieldSpec{Accept: "application/pdf"}, "x.pdf", true},
	}
	for _, c := range cases {
		if got := c.field.Accepts(c.name); got != c.want {
			t.Fatalf("Accepts(%q) with %q = %v, want %v", c.name, c.field.Accept, got, c.want)
		}
	}
}

func TestResolveDateBound(t *testing.T) {
	now := time.Date(2024, time.June, 15, 18, 0, 0, 0, time.UTC)
	got, ok, err := ResolveDateBound("-18y", now)
	if err != nil || !ok || !got.Equal(time.Date(2006, time.June, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("relative bound: %v %v %v", got, ok, err)
	}
	if _, ok, _ := ResolveDateBound("", now); ok {
		t.Fatalf("empty bound should not resolve")
	}
	if _, _, err := ResolveDateBound("abcy", now); err == nil {
		t.Fatalf("expected error for malformed relative bound")
	}
	got, ok, err = ResolveDateBound("2001-02-03", now)
	if err != nil || !ok || got.Year() != 2001 {
		t.Fatalf("absolute bound: %v %v %v", got, ok, err)
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{}
	errs.Add("b", "required")
	errs.Add("a", "bad")
	errs.Add("a", "worse")
	want := "model: validation failed: a: bad; worse, b: required"
	if errs.Error() != want {
		t.Fatalf("got %q", errs.Error())
	}
}
