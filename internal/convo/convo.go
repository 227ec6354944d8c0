// Package convo detects AI-chat transcripts embedded in notes and parses
// them into speaker-attributed messages. Detection is heuristic: several
// independent signals each suffice to classify a note as a conversation.
package convo

import (
	"regexp"
	"strings"
)

var (
	roleMarkerRe = regexp.MustCompile(`(?m)^\*\*([^*]+)\*\*\s*:`)
	calloutRe    = regexp.MustCompile(`(?m)^>\s*\[!([A-Za-z-]+)\]\s*(.*)$`)
	hrRe         = regexp.MustCompile(`(?m)^\s*---\s*$`)
)

// knownSources is the closed set of assistant names detection matches
// against. Membership tests are case-insensitive; the canonical casing is
// what callers see.
var knownSources = []string{
	"Claude", "ChatGPT", "GPT", "Gemini", "Copilot",
	"Perplexity", "DeepSeek", "Grok", "Llama", "Mistral",
}

// Metadata is the derived classification for one note. It is computed per
// call and never persisted.
type Metadata struct {
	IsConversation    bool     `json:"isConversation"`
	Source            string   `json:"source,omitempty"`
	MessageCount      int      `json:"messageCount"`
	UserMessages      int      `json:"userMessages"`
	AssistantMessages int      `json:"assistantMessages"`
	Speakers          []string `json:"speakers,omitempty"`
	HasCallouts       bool     `json:"hasCallouts"`
	CalloutTypes      []string `json:"calloutTypes,omitempty"`
}

// Message is one speaker-attributed segment of a conversation.
type Message struct {
	Role     string    `json:"role"` // "user" or "assistant"
	Speaker  string    `json:"speaker"`
	Content  string    `json:"content"`
	Callouts []Callout `json:"callouts,omitempty"`
}

// Callout is a blockquote annotation: > [!TYPE] Title followed by
// contiguous >-prefixed lines.
type Callout struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// Detect classifies raw text plus its parsed metadata map. Any one signal
// can flip IsConversation: a known source field, a conversation/research
// tag, a source name among the tags, or role-marker structure with a User
// speaker and at least one other. Callout detection is independent and
// applies to non-conversation notes too.
func Detect(text string, metadata map[string]any) Metadata {
	var meta Metadata

	// Signal: explicit source field naming a known assistant.
	if src, ok := metadata["source"].(string); ok {
		if canonical, known := matchSource(src); known {
			meta.IsConversation = true
			meta.Source = canonical
		}
	}

	tags := collectTags(metadata, text)
	for _, tag := range tags {
		// Signal: conversation/research tag.
		if strings.EqualFold(tag, "conversation") || strings.EqualFold(tag, "research") {
			meta.IsConversation = true
		}
		// Signal: a source name used as a tag.
		if canonical, known := matchSource(tag); known {
			meta.IsConversation = true
			if meta.Source == "" {
				meta.Source = canonical
			}
		}
	}

	// Signal: role-marker structure.
	speakers := speakerNames(text)
	markers := roleMarkerRe.FindAllString(text, -1)
	if len(markers) >= 2 && containsString(speakers, "User") && len(speakers) >= 2 {
		meta.IsConversation = true
	}
	meta.Speakers = speakers

	messages := ParseMessages(text)
	meta.MessageCount = len(messages)
	for _, m := range messages {
		if m.Role == "user" {
			meta.UserMessages++
		} else {
			meta.AssistantMessages++
		}
	}

	// Source inference from speakers when nothing else set it.
	if meta.Source == "" {
		for _, sp := range speakers {
			if canonical, known := matchSource(sp); known {
				meta.Source = canonical
				break
			}
		}
	}

	for _, m := range calloutRe.FindAllStringSubmatch(text, -1) {
		meta.HasCallouts = true
		typ := strings.ToUpper(m[1])
		if !containsString(meta.CalloutTypes, typ) {
			meta.CalloutTypes = append(meta.CalloutTypes, typ)
		}
	}

	return meta
}

// ParseMessages splits a body on horizontal-rule separators and keeps only
// segments that open with a **Speaker**: marker; preamble and unmarked
// segments are dropped. The speaker "User" (exact case) maps to role user;
// every other speaker is an assistant.
func ParseMessages(body string) []Message {
	var out []Message
	for _, segment := range hrRe.Split(body, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		loc := roleMarkerRe.FindStringSubmatchIndex(segment)
		if loc == nil || loc[0] != 0 {
			continue
		}
		speaker := strings.TrimSpace(segment[loc[2]:loc[3]])
		content := strings.TrimSpace(segment[loc[1]:])

		role := "assistant"
		if speaker == "User" {
			role = "user"
		}
		out = append(out, Message{
			Role:     role,
			Speaker:  speaker,
			Content:  content,
			Callouts: extractCallouts(content),
		})
	}
	return out
}

// extractCallouts scans for > [!TYPE] Title headers followed by contiguous
// >-prefixed lines, stripping the quote prefix from content lines.
func extractCallouts(content string) []Callout {
	lines := strings.Split(content, "\n")
	var out []Callout

	for i := 0; i < len(lines); i++ {
		m := calloutRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		c := Callout{
			Type:  strings.ToUpper(m[1]),
			Title: strings.TrimSpace(m[2]),
		}
		var body []string
		for i++; i < len(lines); i++ {
			line := lines[i]
			if !strings.HasPrefix(strings.TrimSpace(line), ">") {
				i--
				break
			}
			stripped := strings.TrimPrefix(strings.TrimSpace(line), ">")
			body = append(body, strings.TrimPrefix(stripped, " "))
		}
		c.Content = strings.TrimSpace(strings.Join(body, "\n"))
		out = append(out, c)
	}
	return out
}

// speakerNames returns the distinct role-marker speakers in order of first
// appearance.
func speakerNames(text string) []string {
	var out []string
	for _, m := range roleMarkerRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name != "" && !containsString(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// matchSource tests membership in the known-assistant set, returning the
// canonical casing.
func matchSource(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, s := range knownSources {
		if strings.EqualFold(name, s) {
			return s, true
		}
	}
	return "", false
}

// collectTags merges frontmatter tags with inline #tags from the body.
func collectTags(metadata map[string]any, text string) []string {
	var out []string
	switch v := metadata["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = append(out, v)
	}
	for _, m := range inlineTagRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
