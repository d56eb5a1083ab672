// Package wizard drives the multi-step user form.
//
// A Session owns the step cursor, the live form values, the files staged for
// upload and the upload progress registry. Field edits mutate the session
// directly; advancing past the final step runs the submission pipeline, which
// uploads every local staged file concurrently, assembles the user payload
// and hands it to the entity transport. Failures anywhere in the pipeline are
// reported once, as a single error and a generic notification, and leave the
// staged state intact so the whole submission can be retried.
package wizard
