package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrSiteNotFound is returned when no site matches a key or id.
	ErrSiteNotFound = errors.New("site not found")

	// ErrPageNotFound is returned when updating a page id that does not exist
	// for the site.
	ErrPageNotFound = errors.New("page not found")

	// ErrNoSiteID is returned when a site handle has not been persisted yet.
	ErrNoSiteID = errors.New("site has no id")
)
