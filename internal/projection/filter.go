// Package projection holds the pure views derived from hydrated profiles:
// filtering, pagination and dashboard data.
package projection

import (
	"sort"

	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/pkg/textx"
)

// Apply returns the profiles that pass the filter, ordered by f.SortBy.
// The input slice is never modified. An unknown SortBy keeps input order.
func Apply(profiles []domain.Profile, f domain.FilterState) []domain.Profile {
	required := textx.SkillSet(f.RequiredSkills)
	out := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.Experience() < f.MinExperience {
			continue
		}
		if !hasAllSkills(p.Skills, required) {
			continue
		}
		out = append(out, p)
	}
	if f.SortBy == domain.SortExperience {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Experience() > out[j].Experience()
		})
	}
	return out
}

func hasAllSkills(skills []string, required map[string]struct{}) bool {
	if len(required) == 0 {
		return true
	}
	have := textx.SkillSet(skills)
	for k := range required {
		if _, ok := have[k]; !ok {
			return false
		}
	}
	return true
}

// HasSkill reports whether skill is in skills, ignoring case and
// surrounding whitespace.
func HasSkill(skills []string, skill string) bool {
	key := textx.SkillKey(skill)
	for _, s := range skills {
		if textx.SkillKey(s) == key {
			return true
		}
	}
	return false
}
