package bases

import (
	"path"
	"strings"
	"time"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/models"
)

// Context is the per-document record the evaluator reads: file attributes,
// derived tags and links, and the raw metadata map. It is built fresh for
// every query and never cached across queries.
type Context struct {
	Path     string
	Name     string // filename stem
	Folder   string
	Ext      string
	Size     int64
	Ctime    time.Time
	Mtime    time.Time
	Title    string
	Tags     []string
	Links    []string
	Metadata map[string]any
}

// NewContext builds a Context from storage metadata and extraction output.
func NewContext(meta models.FileMeta, res *extract.Result) *Context {
	folder := path.Dir(meta.Path)
	if folder == "." {
		folder = ""
	}
	return &Context{
		Path:     meta.Path,
		Name:     extract.Stem(meta.Path),
		Folder:   folder,
		Ext:      strings.TrimPrefix(path.Ext(meta.Path), "."),
		Size:     meta.Size,
		Ctime:    meta.CreatedAt,
		Mtime:    meta.UpdatedAt,
		Title:    res.Title,
		Tags:     res.Tags,
		Links:    res.Links,
		Metadata: res.Metadata,
	}
}

// FileFields lists the file.* pseudo-properties projected when a view has
// no explicit column list.
var FileFields = []string{
	"file.name", "file.path", "file.folder", "file.ext",
	"file.size", "file.ctime", "file.mtime", "file.tags", "file.links",
}

// Value resolves a property reference: file.* pseudo-properties first, then
// the metadata map. Unknown references yield nil.
func (c *Context) Value(name string) any {
	switch name {
	case "file.name":
		return c.Name
	case "file.path":
		return c.Path
	case "file.folder":
		return c.Folder
	case "file.ext":
		return c.Ext
	case "file.size":
		return c.Size
	case "file.ctime":
		return c.Ctime
	case "file.mtime":
		return c.Mtime
	case "file.title":
		return c.Title
	case "file.tags":
		return c.Tags
	case "file.links":
		return c.Links
	}
	if c.Metadata == nil {
		return nil
	}
	if v, ok := c.Metadata[name]; ok {
		return v
	}
	// Allow a "note." prefix as an explicit metadata namespace.
	if after, ok := strings.CutPrefix(name, "note."); ok {
		return c.Metadata[after]
	}
	return nil
}

// HasTag reports tag membership, accepting an optional leading #.
func (c *Context) HasTag(tag string) bool {
	tag = strings.TrimPrefix(tag, "#")
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasLink reports membership in the raw outgoing link targets.
func (c *Context) HasLink(target string) bool {
	for _, l := range c.Links {
		if l == target {
			return true
		}
	}
	return false
}

// InFolder reports whether the document sits in folder or below it.
func (c *Context) InFolder(folder string) bool {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return true
	}
	return c.Folder == folder || strings.HasPrefix(c.Folder, folder+"/")
}
