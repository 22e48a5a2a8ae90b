// Package normalize repairs operator data-entry errors in record text and
// enforces the dealership's terminology. It is pure: no I/O, no state.
package normalize

import (
	"maps"
	"regexp"
	"strconv"
	"strings"
)

// Hitch types.
const (
	HitchGooseneck  = "Gooseneck"
	HitchBumperPull = "Bumper-pull"
)

// Fields is a record flattened to column name → text.
type Fields map[string]string

// Profile tells the normalizer which fields play which role for a category.
type Profile struct {
	// TextFields receive spelling, unit, abbreviation and terminology repair.
	TextFields []string
	// UpperFields are uppercased unconditionally.
	UpperFields []string

	TypeField        string
	DescriptionField string
	SizeField        string
	HitchField       string

	// Noun is the generic category word stripped from the type field.
	Noun string
}

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 6

// Normalizer applies the ordered cleanup rules for one profile.
type Normalizer struct {
	profile Profile
	noun    *regexp.Regexp
}

// New returns a normalizer for the given profile.
func New(p Profile) *Normalizer {
	n := &Normalizer{profile: p}
	if p.Noun != "" {
		n.noun = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p.Noun) + `S?\b`)
	}
	return n
}

// Normalize returns a cleaned copy of in. The rules run in order and the
// pass repeats until nothing changes, so Normalize(Normalize(x)) equals
// Normalize(x).
func (n *Normalizer) Normalize(in Fields) Fields {
	out := make(Fields, len(in))
	maps.Copy(out, in)
	for range maxPasses {
		if !n.pass(out) {
			break
		}
	}
	return out
}

// pass applies every rule once and reports whether any field changed.
func (n *Normalizer) pass(f Fields) bool {
	before := maps.Clone(f)
	p := n.profile

	for k, v := range f {
		f[k] = strings.TrimSpace(v)
	}

	for _, name := range p.TextFields {
		v := f[name]
		if v == "" {
			continue
		}
		v = applyAll(Spelling, v)
		v = applyAll(UnitSpacing, v)
		v = Abbreviation.Apply(v)
		v = applyAll(Terminology, v)
		f[name] = strings.TrimSpace(v)
	}

	for _, name := range p.UpperFields {
		if v, ok := f[name]; ok {
			f[name] = strings.ToUpper(v)
		}
	}

	desc := f[p.DescriptionField]
	if p.SizeField != "" && populated(f[p.SizeField]) && desc != "" {
		desc = collapse(sizeMention.ReplaceAllString(desc, ""))
	}
	for strings.HasPrefix(desc, ". ") {
		desc = strings.TrimSpace(desc[2:])
	}

	typ := f[p.TypeField]
	if n.noun != nil && typ != "" {
		typ = collapse(n.noun.ReplaceAllString(typ, ""))
	}

	if p.HitchField != "" && f[p.HitchField] != "" {
		desc = stripHitch(desc)
		typ = stripHitch(typ)
	}

	if p.DescriptionField != "" {
		if _, ok := f[p.DescriptionField]; ok || desc != "" {
			f[p.DescriptionField] = desc
		}
	}
	if p.TypeField != "" {
		if _, ok := f[p.TypeField]; ok || typ != "" {
			f[p.TypeField] = typ
		}
	}

	return !maps.Equal(before, f)
}

// InferHitch picks a hitch type from free text: any gooseneck indicator wins,
// everything else is bumper-pull.
func InferHitch(texts ...string) string {
	for _, t := range texts {
		if gooseneckIndicator.MatchString(t) {
			return HitchGooseneck
		}
	}
	return HitchBumperPull
}

func stripHitch(s string) string {
	if s == "" {
		return s
	}
	for _, kw := range HitchKeywords {
		s = kw.ReplaceAllString(s, "")
	}
	s = collapse(s)
	s = spaceComma.ReplaceAllString(s, ",")
	s = repeatedCommas.ReplaceAllString(s, ",")
	s = leadingComma.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// populated reports whether a size value carries a usable, non-zero number.
func populated(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f != 0
	}
	return true
}
