// Package progress tracks in-flight uploads for a wizard session.
//
// A Registry is owned by the session that performs the uploads and is passed
// by reference to whatever displays progress. Each upload writes only its own
// entry; Clear resets the whole registry once every upload has settled.
// Display derives a presentable View from the registry and keeps nothing but
// the scroll target between updates.
package progress
