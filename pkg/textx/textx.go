// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SkillKey is the comparison key for a skill name: trimmed and case-folded.
func SkillKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSkills trims each skill, drops blanks and removes case-insensitive
// duplicates. The first spelling of a skill is kept. Returns nil for no skills.
func NormalizeSkills(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SkillSet builds a lookup of skill keys.
func SkillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if k := SkillKey(s); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// SplitSkills parses a comma separated skill list as typed into a form or flag.
func SplitSkills(s string) []string {
	return NormalizeSkills(strings.Split(s, ","))
}

// FirstToken returns the first whitespace separated word of s, or "".
func FirstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
