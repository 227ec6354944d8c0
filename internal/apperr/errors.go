// Package apperr holds the sentinel errors shared by the note service and
// both transport layers. The API maps them to HTTP status codes; the MCP
// tools surface them as tool errors.
package apperr

import "errors"

var (
	// ErrNotFound means the requested note is not in the vault.
	ErrNotFound = errors.New("note not found")
	// ErrConflict means an If-Match checksum no longer matches the stored
	// content.
	ErrConflict = errors.New("checksum conflict")
	// ErrAlreadyExists means a create targeted a path that is taken.
	ErrAlreadyExists = errors.New("note already exists")
)
