// Package extract pulls structured signals out of raw Markdown: YAML
// frontmatter, wikilinks, embeds, tags, and inline key:: value fields.
package extract

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`(!?)\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	fieldRe    = regexp.MustCompile(`(?m)^([A-Za-z][A-Za-z0-9_ -]*?)::\s*(.+)$`)
)

// Result holds every signal extracted from one Markdown document.
type Result struct {
	Metadata map[string]any
	Body     string
	Title    string
	Tags     []string
	Links    []string // raw wikilink targets, unresolved
	Embeds   []string // raw ![[embed]] targets
	Fields   map[string]string
}

// Parse extracts frontmatter, body, links, embeds, tags, and inline fields
// from raw Markdown bytes.
func Parse(name string, data []byte) (*Result, error) {
	meta, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	links, embeds := extractLinks(body)

	return &Result{
		Metadata: meta,
		Body:     body,
		Title:    deriveTitle(meta, body, name),
		Tags:     extractTags(body, meta),
		Links:    links,
		Embeds:   embeds,
		Fields:   extractFields(body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- fences)
// from the Markdown body. Missing or invalid frontmatter means the whole
// content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var meta map[string]any
	if err := yaml.Unmarshal(yamlBlock, &meta); err != nil {
		// Invalid YAML: fall back to body-only, never an error.
		return nil, string(data), nil
	}

	return meta, body, nil
}

// extractLinks returns deduplicated wikilink and embed targets, preserving
// order of first appearance. A leading ! marks an embed rather than a link.
// Aliases ([[Target|Alias]]) are stripped to the target.
func extractLinks(body string) (links, embeds []string) {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seenLink := make(map[string]struct{}, len(matches))
	seenEmbed := make(map[string]struct{})
	for _, m := range matches {
		target := m[2]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		// Embeds may carry a fragment or block ref after #.
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if m[1] == "!" {
			if _, ok := seenEmbed[target]; !ok {
				seenEmbed[target] = struct{}{}
				embeds = append(embeds, target)
			}
			continue
		}
		if _, ok := seenLink[target]; !ok {
			seenLink[target] = struct{}{}
			links = append(links, target)
		}
	}
	return links, embeds
}

// extractTags collects tags from the frontmatter "tags" field and inline
// #tags in the body, deduplicated, frontmatter first.
func extractTags(body string, meta map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(s string) {
		s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
		if s == "" {
			return
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	if meta != nil {
		switch v := meta["tags"].(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			// Comma- or space-separated scalar form.
			for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
				add(s)
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}

// extractFields collects inline "key:: value" fields. The first occurrence
// of a key wins.
func extractFields(body string) map[string]string {
	matches := fieldRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make(map[string]string, len(matches))
	for _, m := range matches {
		key := strings.TrimSpace(m[1])
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = strings.TrimSpace(m[2])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise the filename stem.
func deriveTitle(meta map[string]any, body, name string) string {
	if meta != nil {
		if s, ok := meta["title"].(string); ok && s != "" {
			return s
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return Stem(name)
}

// Stem returns the final path segment without its extension.
func Stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
