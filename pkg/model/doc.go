// Package model defines the static description of a multi-step form: ordered
// sections, the fields inside them, and the per-kind validation applied to
// field values. Definitions are declarative documents (YAML or JSON) loaded
// through LoadFS; the user form ships embedded and is available via UserForm.
//
// Field kinds form a closed set (text, date, number, select, multiselect,
// textarea, file). Every kind-dependent behaviour is resolved through a single
// switch on Kind so adding a kind means touching one place per concern.
//
// Date bounds accept either an absolute YYYY-MM-DD value or a relative year
// offset such as "-18y", resolved against the clock passed to Validate.
package model
