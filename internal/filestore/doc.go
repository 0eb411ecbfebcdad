// Package filestore writes downloaded resources below a root directory.
//
// Files are grouped as <root>/<site title>/<group title>/<name>, where every
// component is sanitized for the local filesystem. A name that is already
// taken by different content gets a short suffix derived from the source
// URL, so two resources never overwrite each other.
package filestore
