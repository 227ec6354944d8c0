// Package models defines the domain types for Raido.
package models

import "time"

// Document is a read-only snapshot of a vault note taken during one
// indexing pass. Paths are vault-relative with forward slashes. A document
// is never mutated in place; edits produce a new text blob written back
// through the storage provider.
type Document struct {
	Path     string         `json:"path"`
	Text     string         `json:"-"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Title    string         `json:"title,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Links    []string       `json:"links,omitempty"` // raw, unresolved targets
	Embeds   []string       `json:"embeds,omitempty"`
}

// FileMeta describes a vault file as reported by the storage provider.
type FileMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
