package model

// Kind enumerates the supported field components.
type Kind string

const (
	KindText        Kind = "text"
	KindDate        Kind = "date"
	KindNumber      Kind = "number"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindTextarea    Kind = "textarea"
	KindFile        Kind = "file"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindDate, KindNumber, KindSelect, KindMultiSelect, KindTextarea, KindFile:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the kind draws its values from Options.
func (k Kind) HasOptions() bool {
	return k == KindSelect || k == KindMultiSelect
}

// Option is a label/value pair offered by select kinds.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FieldSpec describes one input inside a section.
type FieldSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled    bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Derived     bool     `json:"derived,omitempty" yaml:"derived,omitempty"`
	Multiple    bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Min         string   `json:"min,omitempty" yaml:"min,omitempty"`
	Max         string   `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Accept      string   `json:"accept,omitempty" yaml:"accept,omitempty"`
	Image       bool     `json:"image,omitempty" yaml:"image,omitempty"`
	Options     []Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// DisplayLabel falls back to the field name when no label is configured.
func (f FieldSpec) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Editable reports whether users may set the value directly.
func (f FieldSpec) Editable() bool {
	return !f.Disabled && !f.Derived
}

// OptionLabel returns the label registered for value, or value itself.
func (f FieldSpec) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Section is one wizard step.
type Section struct {
	Key        string      `json:"key" yaml:"key"`
	Title      string      `json:"title" yaml:"title"`
	Repeatable bool        `json:"repeatable,omitempty" yaml:"repeatable,omitempty"`
	Fields     []FieldSpec `json:"fields" yaml:"fields"`
}

// Field returns the field named name.
func (s Section) Field(name string) (FieldSpec, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// Form is an ordered, immutable list of sections.
type Form struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title,omitempty" yaml:"title,omitempty"`
	MaxFilesPerField int       `json:"maxFilesPerField,omitempty" yaml:"maxFilesPerField,omitempty"`
	Sections         []Section `json:"sections" yaml:"sections"`
}

// DefaultMaxFilesPerField caps staged files on multi-file fields when a form
// does not configure its own limit.
const DefaultMaxFilesPerField = 3

// Steps returns the number of sections.
func (f Form) Steps() int {
	return len(f.Sections)
}

// Section returns the section with the given key.
func (f Form) Section(key string) (Section, bool) {
	for _, section := range f.Sections {
		if section.Key == key {
			return section, true
		}
	}
	return Section{}, false
}

// FileLimit reports the staging cap for multi-file fields.
func (f Form) FileLimit() int {
	if f.MaxFilesPerField > 0 {
		return f.MaxFilesPerField
	}
	return DefaultMaxFilesPerField
}

// Lookup resolves a dotted value path to its field spec. Paths inside
// repeatable sections take the form "<section>.<index>.<field>"; other
// fields are addressed by name alone.
func (f Form) Lookup(path string) (FieldSpec, Section, bool) {
	for _, section := range f.Sections {
		if section.Repeatable {
			prefix := section.Key + "."
			if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
				continue
			}
			rest := path[len(prefix):]
			for i := 0; i < len(rest); i++ {
				if rest[i] == '.' {
					if field, ok := section.Field(rest[i+1:]); ok {
						return field, section, true
					}
					break
				}
			}
			continue
		}
		if field, ok := section.Field(path); ok {
			return field, section, true
		}
	}
	return FieldSpec{}, Section{}, false
}

// FileFields lists every file-kind field across sections.
func (f Form) FileFields() []FieldSpec {
	var out []FieldSpec
	for _, section := range f.Sections {
		for _, field := range section.Fields {
			if field.Kind == KindFile {
				out = append(out, field)
			}
		}
	}
	return out
}
