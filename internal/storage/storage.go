// Package storage uploads avatar images to an S3-compatible bucket.
package storage

import "errors"

// ErrNotFound is returned by Delete when the object is already gone.
var ErrNotFound = errors.New("object not found")

// UploadOptions controls where an image lands and how it is resized. Crop is
// one of "fit", "fill" or "scale"; a zero Width or Height keeps the source
// dimensions.
type UploadOptions struct {
	Folder string
	Width  int
	Height int
	Crop   string
}

// UploadResult describes a stored image. PublicID is the key used to delete
// it later.
type UploadResult struct {
	URL       string
	PublicID  string
	SecureURL string
	Width     int
	Height    int
	Format    string
}
