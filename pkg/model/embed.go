package model

import (
	"embed"
	"io/fs"
	"sync"
)

// UserFormID identifies the bundled user-management form.
const UserFormID = "user"

//go:embed forms/*
var embeddedForms embed.FS

var (
	defaultStoreOnce sync.Once
	defaultStore     *Store
	defaultStoreErr  error
)

// EmbeddedFS returns the bundled form definitions.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedForms, "forms")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

// UserForm returns the bundled user form. It panics if the embedded
// definition is invalid, which tests guard against.
func UserForm() Form {
	defaultStoreOnce.Do(func() {
		defaultStore, defaultStoreErr = LoadFS(EmbeddedFS())
	})
	if defaultStoreErr != nil {
		panic(defaultStoreErr)
	}
	form, ok := defaultStore.Form(UserFormID)
	if !ok {
		panic("model: embedded user form missing")
	}
	return form
}
