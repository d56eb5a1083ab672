// Package media models files chosen by the user before submission. A staged
// entry is either Local (a reference that still needs uploading) or Persisted
// (a document already acknowledged by remote storage). The state is decided
// once, at staging time, by a Classifier configured with the storage domains
// the backend hands out.
package media
