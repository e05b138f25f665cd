package id

import "github.com/teris-io/shortid"

// ShortId returns a short url-safe id, falling back to a dashless uuid when
// the generator fails.
func ShortId() string {
	id, err := shortid.Generate()
	if err != nil || id == "" {
		return GetUUIDWithoutDashes()
	}
	return id
}
