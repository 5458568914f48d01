// Package report shapes fetched orders into the tabular row sets behind each
// report type and renders them to CSV, XLSX, and PDF artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// exclusionMarker tags internal bookkeeping attributes that merchants never
// see; any pair whose key or value contains it is dropped from memos.
const exclusionMarker = "has_gpo"

// defaultVariantTitle is the placeholder Shopify assigns to single-variant
// products; it carries no information and is never rendered.
const defaultVariantTitle = "Default Title"

// spacedLetters matches 3+ single uppercase letters separated by single
// spaces, an upstream corruption pattern ("I N S I D E").
var spacedLetters = regexp.MustCompile(`\b[A-Z](?:\s[A-Z]){2,}\b`)

// memoPriority orders personalization keys ahead of everything else when
// priority sorting is requested. Keys are matched after title-casing,
// case-insensitively.
var memoPriority = map[string]int{
	"first name":    0,
	"last name":     1,
	"background":    2,
	"font":          3,
	"outline style": 4,
	"font color":    5,
	"text":          6,
	"message":       7,
	"customization": 8,
}

// MemoOptions control per-report-type memo behavior.
type MemoOptions struct {
	// VariantTitle, when nonempty and meaningful, is prepended as the
	// first memo line.
	VariantTitle string
	// SortByPriority sorts personalization keys first and the remainder
	// alphabetically instead of preserving attribute order.
	SortByPriority bool
}

// FormatMemo turns a line item's custom attributes into a multi-line
// "Key: Value" memo. Empty values and bookkeeping attributes are dropped;
// an empty result is not an error.
func FormatMemo(attrs []model.CustomAttribute, opts MemoOptions) string {
	var parts []string

	if vt := strings.TrimSpace(opts.VariantTitle); vt != "" && vt != defaultVariantTitle {
		parts = append(parts, FixSpacing(vt))
	}

	type pair struct {
		key   string
		value string
	}
	kept := make([]pair, 0, len(attrs))
	for _, attr := range attrs {
		if strings.TrimSpace(attr.Value) == "" {
			continue
		}
		if strings.Contains(strings.ToLower(attr.Key), exclusionMarker) ||
			strings.Contains(strings.ToLower(attr.Value), exclusionMarker) {
			continue
		}
		kept = append(kept, pair{
			key:   FixSpacing(titleCaseKey(attr.Key)),
			value: FixSpacing(normalizeValue(attr.Value)),
		})
	}

	if opts.SortByPriority {
		sort.SliceStable(kept, func(i, j int) bool {
			pi, iOK := memoPriority[strings.ToLower(kept[i].key)]
			pj, jOK := memoPriority[strings.ToLower(kept[j].key)]
			switch {
			case iOK && jOK:
				return pi < pj
			case iOK:
				return true
			case jOK:
				return false
			default:
				return strings.ToLower(kept[i].key) < strings.ToLower(kept[j].key)
			}
		})
	}

	for _, p := range kept {
		parts = append(parts, p.key+": "+p.value)
	}
	return strings.Join(parts, "\n")
}

// FixSpacing collapses runs of single-spaced uppercase letters into a
// contiguous word. Idempotent.
func FixSpacing(text string) string {
	return spacedLetters.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
}

// titleCaseKey converts camel/Pascal-cased attribute keys to "Title Case":
// a space before each internal capital, first letter capitalized.
func titleCaseKey(key string) string {
	if key == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(key) + 4)
	var prev rune
	for i, r := range key {
		if r >= 'A' && r <= 'Z' && i > 0 && prev != ' ' {
			b.WriteByte(' ')
		}
		prev = r
		if i == 0 && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// decodedKind classifies what an attribute value decoded to.
type decodedKind int

const (
	decodedScalar decodedKind = iota
	decodedSequence
	decodedStructured
)

// classifyValue attempts to decode a value as JSON and reports what it is.
// Anything that fails to decode is a scalar carrying the trimmed raw text.
func classifyValue(raw string) (decodedKind, any) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return decodedScalar, strings.TrimSpace(raw)
	}
	switch v.(type) {
	case []any:
		return decodedSequence, v
	case map[string]any:
		return decodedStructured, v
	case nil:
		return decodedScalar, strings.TrimSpace(raw)
	default:
		return decodedScalar, v
	}
}

// normalizeValue renders a decoded attribute value: sequences join with
// ", ", keyed structures pretty-print, scalars pass through.
func normalizeValue(raw string) string {
	kind, v := classifyValue(raw)
	switch kind {
	case decodedSequence:
		seq := v.([]any)
		elems := make([]string, len(seq))
		for i, e := range seq {
			elems[i] = fmt.Sprint(e)
		}
		return strings.Join(elems, ", ")
	case decodedStructured:
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return strings.TrimSpace(raw)
		}
		return string(pretty)
	default:
		return fmt.Sprint(v)
	}
}
