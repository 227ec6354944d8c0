package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Raido Note Format Contract

Every Markdown note stored in Raido MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – used in search, listings, graph
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
created: 2025-01-15                 # OPTIONAL – ISO-8601 date or datetime
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use ![[target]] to embed rather than link.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `title` + "`" + ` field is required.** It is the primary display name everywhere.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `).
4. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension, path separators OK: ` + "`" + `[[folder/note]]` + "`" + `).
   Targets resolve case-insensitively; a fragment after ` + "`" + `#` + "`" + ` is ignored.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8 with a trailing newline.
7. **No HTML** unless absolutely necessary; prefer Markdown equivalents.
8. **Inline fields** of the form ` + "`" + `key:: value` + "`" + ` on their own line are
   queryable through bases, same as frontmatter properties.

## Example

` + "```" + `markdown
---
title: Weekly standup 2025-01-20
tags:
  - meeting-notes
  - project-x
created: 2025-01-20
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob.

status:: reviewed

## Action items

- [[alice]] to review the [[design-doc]]
- Bob to update [[project-x/roadmap|the roadmap]]
` + "```" + `
`

// FilterSyntaxGuide documents the expression language accepted by base
// filters, exposed as the raido://filter-syntax resource.
const FilterSyntaxGuide = `# Raido Base Filter Syntax

A filter is a string expression evaluated once per note. Notes for which it
is truthy are kept.

## Combinators

Filters may also be YAML/JSON objects combining sub-filters:

` + "```" + `yaml
filters:
  and:            # all must match
    - 'file.hasTag("project")'
    - or:         # any must match
        - 'status == "open"'
        - 'status == "blocked"'
  # not: [...]    # matches when NONE of the listed filters match
` + "```" + `

An empty ` + "`" + `and` + "`" + ` matches everything; an empty ` + "`" + `or` + "`" + ` matches nothing.

## Operators

Binding from loosest to tightest: ` + "`" + `&&` + "`" + `, ` + "`" + `||` + "`" + `, leading ` + "`" + `!` + "`" + `,
function calls, comparisons. Parentheses group.

Comparisons: ` + "`" + `==` + "`" + ` ` + "`" + `!=` + "`" + ` ` + "`" + `<` + "`" + ` ` + "`" + `<=` + "`" + ` ` + "`" + `>` + "`" + ` ` + "`" + `>=` + "`" + `.
Equality compares string renderings, so ` + "`" + `priority == "3"` + "`" + ` matches a numeric 3.
Ordering compares numerically; if either side is not numeric the comparison is false.

## Functions

- ` + "`" + `file.hasTag("x")` + "`" + ` — note carries the tag (frontmatter or inline, # optional)
- ` + "`" + `file.hasLink("other")` + "`" + ` — note contains a wikilink to the target
- ` + "`" + `file.inFolder("projects")` + "`" + ` — note lives under the folder
- ` + "`" + `contains(field, "needle")` + "`" + ` / ` + "`" + `startsWith(...)` + "`" + ` / ` + "`" + `endsWith(...)` + "`" + `
- ` + "`" + `empty(field)` + "`" + ` — missing, empty string, or empty list

Unknown functions evaluate to false, never to an error.

## Values

- ` + "`" + `file.path` + "`" + `, ` + "`" + `file.name` + "`" + `, ` + "`" + `file.folder` + "`" + `, ` + "`" + `file.ext` + "`" + `,
  ` + "`" + `file.size` + "`" + `, ` + "`" + `file.ctime` + "`" + `, ` + "`" + `file.mtime` + "`" + `, ` + "`" + `file.tags` + "`" + `, ` + "`" + `file.links` + "`" + `
- Any bare identifier reads the note's frontmatter / inline-field property.
- Quoted strings are literals; ` + "`" + `true` + "`" + `, ` + "`" + `false` + "`" + `, ` + "`" + `null` + "`" + ` and numbers as expected.

A bare property used as a whole filter is truthy when it is a non-empty,
non-false, non-zero value.
`
