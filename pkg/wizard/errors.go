package wizard

import "errors"

var (
	ErrNotInitialized  = errors.New("wizard: session is not initialized")
	ErrSubmitPending   = errors.New("wizard: submission already in progress")
	ErrMissingID       = errors.New("wizard: edit mode requires an entity id")
	ErrUnknownField    = errors.New("wizard: unknown field")
	ErrDerivedField    = errors.New("wizard: field is derived and cannot be edited")
	ErrFileField       = errors.New("wizard: file fields are changed through staging")
	ErrNotFileField    = errors.New("wizard: field does not accept files")
	ErrNotRepeatable   = errors.New("wizard: section is not repeatable")
	ErrEntryOutOfRange = errors.New("wizard: repeatable entry out of range")
	ErrStagingFull     = errors.New("wizard: staging limit reached for field")
	ErrDuplicateFile   = errors.New("wizard: a staged file with that name already exists")
	ErrFileNotAccepted = errors.New("wizard: file type not accepted")
)
