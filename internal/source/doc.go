// Package source materializes FFmpeg source trees under the sources
// directory.
//
// Release tags are downloaded once with grab, extracted into a temporary
// directory and renamed into place; later requests for the same version are
// served from disk. Branches share a single go-git clone that is force-fetched
// and hard-reset to the remote tip on every request.
package source
