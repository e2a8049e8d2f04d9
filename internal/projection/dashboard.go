package projection

import (
	"sort"

	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/pkg/textx"
)

// DefaultTopSkillLimit caps the skills shown on the radar chart.
const DefaultTopSkillLimit = 8

type BarDatum struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type SkillMatch struct {
	Skill    string `json:"skill"`
	HasSkill bool   `json:"has_skill"`
	// Value is 1 when the candidate has the skill, else 0.
	Value int `json:"value"`
	// Ideal is the reference profile, which has every skill.
	Ideal int `json:"ideal"`
}

type TableRow struct {
	DocumentID      string   `json:"document_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	YearsExperience *float64 `json:"years_experience,omitempty"`
	Location        string   `json:"location,omitempty"`
	Score           float64  `json:"score"`
	SkillCount      int      `json:"skill_count"`
}

// Dashboard is the chart and table data for one result set.
type Dashboard struct {
	BarData    []BarDatum   `json:"bar_data"`
	TopSkills  []string     `json:"top_skills"`
	SelectedID string       `json:"selected_id,omitempty"`
	SkillMatch []SkillMatch `json:"skill_match"`
	Table      []TableRow   `json:"table"`
}

// Project builds the dashboard. requiredSkills, when non-empty, are used
// verbatim as the top skills; otherwise the most frequent profile skills are
// used. selected may be nil, in which case the skill match is empty.
func Project(profiles []domain.Profile, requiredSkills []string, selected *domain.Profile, topSkillLimit int) Dashboard {
	if topSkillLimit <= 0 {
		topSkillLimit = DefaultTopSkillLimit
	}
	d := Dashboard{
		BarData:    BarData(profiles),
		TopSkills:  TopSkills(profiles, requiredSkills, topSkillLimit),
		Table:      Table(profiles),
		SkillMatch: []SkillMatch{},
	}
	if selected != nil {
		d.SelectedID = selected.DocumentID
		d.SkillMatch = Match(*selected, d.TopSkills)
	}
	return d
}

// BarData labels each profile by the first word of its name and orders by
// descending score. Equal scores keep input order.
func BarData(profiles []domain.Profile) []BarDatum {
	out := make([]BarDatum, 0, len(profiles))
	for _, p := range profiles {
		label := textx.FirstToken(p.Name)
		if label == "" {
			label = p.DocumentID
		}
		out = append(out, BarDatum{Label: label, Score: p.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// TopSkills returns requiredSkills when given, else the most frequent skills
// across profiles. Ties go to the skill seen first.
func TopSkills(profiles []domain.Profile, requiredSkills []string, limit int) []string {
	var out []string
	if len(requiredSkills) > 0 {
		out = append(out, requiredSkills...)
	} else {
		type counted struct {
			name  string
			count int
		}
		byKey := map[string]*counted{}
		var order []*counted
		for _, p := range profiles {
			for _, s := range textx.NormalizeSkills(p.Skills) {
				k := textx.SkillKey(s)
				c, ok := byKey[k]
				if !ok {
					c = &counted{name: s}
					byKey[k] = c
					order = append(order, c)
				}
				c.count++
			}
		}
		sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })
		for _, c := range order {
			out = append(out, c.name)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Match reports which of skills the profile has.
func Match(p domain.Profile, skills []string) []SkillMatch {
	out := make([]SkillMatch, 0, len(skills))
	for _, s := range skills {
		has := HasSkill(p.Skills, s)
		v := 0
		if has {
			v = 1
		}
		out = append(out, SkillMatch{Skill: s, HasSkill: has, Value: v, Ideal: 1})
	}
	return out
}

// Table is one row per profile in input order.
func Table(profiles []domain.Profile) []TableRow {
	out := make([]TableRow, 0, len(profiles))
	for _, p := range profiles {
		row := TableRow{
			DocumentID:      p.DocumentID,
			Name:            p.Name,
			Email:           p.Email,
			YearsExperience: p.YearsExperience,
			Score:           p.Score,
			SkillCount:      len(p.Skills),
		}
		if p.Location != nil {
			row.Location = *p.Location
		}
		out = append(out, row)
	}
	return out
}

// FindProfile returns the profile with the given id.
func FindProfile(profiles []domain.Profile, id string) (domain.Profile, bool) {
	for _, p := range profiles {
		if p.DocumentID == id {
			return p, true
		}
	}
	return domain.Profile{}, false
}

// BestProfile returns the highest scoring profile, the first one on ties.
func BestProfile(profiles []domain.Profile) (domain.Profile, bool) {
	if len(profiles) == 0 {
		return domain.Profile{}, false
	}
	best := profiles[0]
	for _, p := range profiles[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, true
}
