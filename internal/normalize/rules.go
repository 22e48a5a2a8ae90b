package normalize

import "regexp"

// Rule is a single pattern → replacement substitution. Replacement may
// reference capture groups as ${1}.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply runs the rule over s.
func (r Rule) Apply(s string) string {
	return r.Pattern.ReplaceAllString(s, r.Replacement)
}

// wordRule builds a case-insensitive rule matching pattern on word boundaries.
func wordRule(pattern, replacement string) Rule {
	return Rule{
		Pattern:     regexp.MustCompile(`(?i)\b(?:` + pattern + `)\b`),
		Replacement: replacement,
	}
}

// Spelling corrects recurring operator misspellings.
var Spelling = []Rule{
	wordRule(`ALUIM|ALUMN|ALIUM`, "ALUM"),
	wordRule(`BIEGE`, "BEIGE"),
	wordRule(`DARGO`, "CARGO"),
	wordRule(`WUTH`, "WITH"),
	wordRule(`WEILDING|WIELDING`, "WELDING"),
}

// UnitSpacing glues a unit token to the number before it: "8 FT" and
// "8.FT" become "8FT", "10 K" becomes "10K".
var UnitSpacing = []Rule{
	{Pattern: regexp.MustCompile(`(?i)(\d+)\s+FT\b`), Replacement: "${1}FT"},
	{Pattern: regexp.MustCompile(`(?i)(\d+)\.FT\b`), Replacement: "${1}FT"},
	{Pattern: regexp.MustCompile(`(?i)(\d+)\s+K\b`), Replacement: "${1}K"},
}

// Abbreviation joins two spaced single capitals ("H D" → "HD").
// Case-sensitive on purpose: lowercase letters are words, not initials.
var Abbreviation = Rule{
	Pattern:     regexp.MustCompile(`\b([A-Z])\s+([A-Z])\b`),
	Replacement: "${1}${2}",
}

// Terminology maps informal or compressed terms to their canonical form.
var Terminology = []Rule{
	wordRule(`CAR[\s-]*HAULER`, "CAR HAULER"),
	wordRule(`DECK[\s-]*OVER`, "DECK OVER"),
	wordRule(`GOOSE[\s-]+NECK`, "GOOSENECK"),
	wordRule(`EQUIP`, "EQUIPMENT"),
}

// HitchKeywords are the coupling indicators removed from descriptive fields
// once the hitch type is recorded. Longer variants come first so "BUMPER
// PULL" is not left as a stray "PULL".
var HitchKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bGOOSE[\s-]*NECK\b`),
	regexp.MustCompile(`(?i)\bG/N\b`),
	regexp.MustCompile(`(?i)\bGN\b`),
	regexp.MustCompile(`(?i)\bBUMPER[\s-]*PULL\b`),
	regexp.MustCompile(`(?i)\bBUMPER\b`),
	regexp.MustCompile(`(?i)\bB/P\b`),
	regexp.MustCompile(`(?i)\bBP\b`),
}

var (
	sizeMention    = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\.?\s*FT\b`)
	whitespace     = regexp.MustCompile(`\s+`)
	spaceComma     = regexp.MustCompile(`\s+,`)
	repeatedCommas = regexp.MustCompile(`,(?:\s*,)+`)
	leadingComma   = regexp.MustCompile(`^\s*,\s*`)
	trailingComma  = regexp.MustCompile(`\s*,\s*$`)

	gooseneckIndicator = regexp.MustCompile(`(?i)\b(?:GOOSE[\s-]*NECK|G/N|GN)\b`)
)

func applyAll(rules []Rule, s string) string {
	for _, r := range rules {
		s = r.Apply(s)
	}
	return s
}
