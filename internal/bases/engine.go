package bases

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/storage"
)

// Definition is a persisted base: an optional top-level filter, named
// formulas, display-property hints (not consumed here), and a list of
// views each with its own filter, sort keys, limit, and columns.
type Definition struct {
	Filters    Expression        `yaml:"filters" json:"filters,omitempty"`
	Formulas   map[string]string `yaml:"formulas" json:"formulas,omitempty"`
	Properties map[string]any    `yaml:"properties" json:"properties,omitempty"`
	Views      []View            `yaml:"views" json:"views"`
}

// View is one named projection within a base.
type View struct {
	Type    string     `yaml:"type" json:"type"`
	Name    string     `yaml:"name" json:"name"`
	Filters Expression `yaml:"filters" json:"filters,omitempty"`
	Order   []SortKey  `yaml:"order" json:"order,omitempty"`
	Limit   int        `yaml:"limit" json:"limit,omitempty"`
	Columns []string   `yaml:"columns" json:"columns,omitempty"`
	GroupBy string     `yaml:"groupBy" json:"groupBy,omitempty"`
}

// SortKey pairs a property with a direction. In YAML it may be a bare
// string (ascending) or a {property, direction} mapping.
type SortKey struct {
	Property  string `yaml:"property" json:"property"`
	Direction string `yaml:"direction" json:"direction,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (k *SortKey) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		k.Property = value.Value
		return nil
	}
	type plain SortKey
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("bases: decode sort key: %w", err)
	}
	*k = SortKey(p)
	return nil
}

// Descending reports whether the key sorts in descending order.
func (k SortKey) Descending() bool {
	return strings.EqualFold(k.Direction, "desc") || strings.EqualFold(k.Direction, "descending")
}

// ParseDefinition decodes a .base definition (YAML, which also covers the
// JSON form).
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("bases: parse definition: %w", err)
	}
	return &def, nil
}

// QueryResult is the outcome of running one view of a base.
type QueryResult struct {
	Documents []map[string]any `json:"documents"`
	Total     int              `json:"total"`
	View      string           `json:"view"`
}

// Engine runs base queries over the vault. Contexts are built fresh per
// query; nothing is cached between queries.
type Engine struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewEngine creates an Engine over the given vault storage.
func NewEngine(store storage.Provider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Query loads every document, filters through the definition-level and
// view-level expressions, computes formulas, sorts, truncates to the view
// limit, and projects columns. Total counts the filtered set before the
// limit is applied. Unreadable documents are skipped, never fatal.
func (e *Engine) Query(def *Definition, viewIndex int) (*QueryResult, error) {
	if def == nil {
		return nil, fmt.Errorf("bases: definition is required")
	}
	if viewIndex < 0 || viewIndex >= len(def.Views) {
		return nil, fmt.Errorf("bases: view index %d out of range (have %d views)", viewIndex, len(def.Views))
	}
	view := def.Views[viewIndex]

	contexts, err := e.loadContexts()
	if err != nil {
		return nil, err
	}

	var kept []*Context
	for _, ctx := range contexts {
		if !def.Filters.IsZero() && !Evaluate(def.Filters, ctx) {
			continue
		}
		if !view.Filters.IsZero() && !Evaluate(view.Filters, ctx) {
			continue
		}
		kept = append(kept, ctx)
	}

	// Derived properties per surviving document, addressable by formula
	// name in sort keys and columns.
	derived := make(map[*Context]map[string]any, len(kept))
	if len(def.Formulas) > 0 {
		for _, ctx := range kept {
			values := make(map[string]any, len(def.Formulas))
			for name, formula := range def.Formulas {
				values[name] = evalFormula(formula, ctx)
			}
			derived[ctx] = values
		}
	}

	sortContexts(kept, view.Order, derived)

	total := len(kept)
	if view.Limit > 0 && len(kept) > view.Limit {
		kept = kept[:view.Limit]
	}

	docs := make([]map[string]any, 0, len(kept))
	for _, ctx := range kept {
		docs = append(docs, project(ctx, view.Columns, derived[ctx]))
	}

	return &QueryResult{Documents: docs, Total: total, View: view.Name}, nil
}

// loadContexts sweeps the corpus and builds one Context per readable note.
func (e *Engine) loadContexts() ([]*Context, error) {
	metas, err := e.store.List("")
	if err != nil {
		return nil, fmt.Errorf("bases: list vault: %w", err)
	}
	out := make([]*Context, 0, len(metas))
	for _, m := range metas {
		data, err := e.store.Read(m.Path)
		if err != nil {
			e.logger.Warn("bases: read failed, skipping note",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res, err := extract.Parse(m.Path, data)
		if err != nil {
			e.logger.Warn("bases: parse failed, skipping note",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		out = append(out, NewContext(m, res))
	}
	return out, nil
}

// evalFormula supports a direct property reference, concat(...) with quoted
// literals and bare property references, and length(...) for arrays and
// strings. Anything else is returned verbatim as a fallback.
func evalFormula(formula string, ctx *Context) any {
	formula = strings.TrimSpace(formula)

	if name, args, ok := matchCall(formula); ok {
		switch name {
		case "concat":
			var b strings.Builder
			for _, a := range args {
				a = strings.TrimSpace(a)
				if isQuoted(a) {
					b.WriteString(a[1 : len(a)-1])
				} else {
					b.WriteString(cast.ToString(ctx.Value(a)))
				}
			}
			return b.String()
		case "length":
			if len(args) == 0 {
				return 0
			}
			switch v := resolveValue(args[0], ctx).(type) {
			case []any:
				return len(v)
			case []string:
				return len(v)
			case string:
				return utf8.RuneCountInString(v)
			default:
				return 0
			}
		}
		return formula
	}

	if v := ctx.Value(formula); v != nil {
		return v
	}
	return formula
}

// sortContexts applies a stable multi-key sort. Ties fall through to the
// next key; the final tie preserves input order.
func sortContexts(ctxs []*Context, keys []SortKey, derived map[*Context]map[string]any) {
	if len(keys) == 0 {
		return
	}
	value := func(ctx *Context, prop string) any {
		if d, ok := derived[ctx]; ok {
			if v, ok := d[prop]; ok {
				return v
			}
		}
		return ctx.Value(prop)
	}
	sort.SliceStable(ctxs, func(i, j int) bool {
		for _, key := range keys {
			c := compareValues(value(ctxs[i], key.Property), value(ctxs[j], key.Property))
			if c == 0 {
				continue
			}
			if key.Descending() {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders numerically when both sides read as numbers,
// otherwise lexically on their string coercions.
func compareValues(a, b any) int {
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}

// project builds the output record for one document: the explicit column
// list if present, otherwise every metadata property plus the fixed file.*
// fields. Formula values are always included under their names.
func project(ctx *Context, columns []string, derived map[string]any) map[string]any {
	out := make(map[string]any)

	if len(columns) > 0 {
		for _, col := range columns {
			if v, ok := derived[col]; ok {
				out[col] = v
				continue
			}
			out[col] = ctx.Value(col)
		}
		return out
	}

	for k, v := range ctx.Metadata {
		out[k] = v
	}
	for _, f := range FileFields {
		out[f] = ctx.Value(f)
	}
	for k, v := range derived {
		out[k] = v
	}
	return out
}
