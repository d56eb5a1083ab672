// Package entity defines the persisted user record exchanged with the entity
// store, along with the derived-age calculation and the listing helpers used
// by the list view. JSON tags follow the REST wire shape: dates travel as
// YYYY-MM-DD strings, documents under "document" and the profile picture
// under "photo".
package entity
