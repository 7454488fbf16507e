package profile

// Record is one stored candidate profile. The JSON names are the persisted
// format and must stay stable.
type Record struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Headline    string       `json:"headline" yaml:"headline"`
	Location    string       `json:"location" yaml:"location"`
	Education   []string     `json:"education" yaml:"education"`
	Experience  []Experience `json:"experience" yaml:"experience"`
	Skills      []string     `json:"skills" yaml:"skills"`
	Connections int          `json:"connections" yaml:"connections"`
	ProfileURL  string       `json:"profileUrl" yaml:"profileUrl"`
	Analysis    *Analysis    `json:"analysis,omitempty" yaml:"analysis,omitempty"` // nil until the first analysis completes
}

// Experience is a single position held by the candidate.
type Experience struct {
	Company     string `json:"company" yaml:"company"`
	Position    string `json:"position" yaml:"position"`
	Duration    string `json:"duration" yaml:"duration"`
	Description string `json:"description" yaml:"description"`
}

// Analysis is the latest suitability analysis attached to a record.
type Analysis struct {
	SuitabilityScore   int      `json:"suitabilityScore" yaml:"suitabilityScore"`
	MatchedInternships []string `json:"matchedInternships" yaml:"matchedInternships"`
	StrengthAreas      []string `json:"strengthAreas" yaml:"strengthAreas"`
	ImprovementAreas   []string `json:"improvementAreas" yaml:"improvementAreas"`
}

// Draft holds profile fields extracted from an import source. Empty fields
// fall back to placeholders when the record is created.
type Draft struct {
	Name       string
	Headline   string
	Location   string
	Education  []string
	Experience []Experience
	Skills     []string
}

var placeholder = Draft{
	Name:      "New Candidate",
	Headline:  "Extracted from LinkedIn Profile",
	Location:  "Location from LinkedIn",
	Education: []string{"University extracted from profile"},
	Experience: []Experience{{
		Company:     "Company from LinkedIn",
		Position:    "Position from LinkedIn",
		Duration:    "Duration from LinkedIn",
		Description: "Description extracted from profile",
	}},
	Skills: []string{"Skills", "Extracted", "From", "LinkedIn"},
}

// newRecord builds a record from d, filling empty fields from placeholder.
func (d Draft) newRecord(id, url string, connections int) Record {
	r := Record{
		ID:          id,
		Name:        firstNonEmpty(d.Name, placeholder.Name),
		Headline:    firstNonEmpty(d.Headline, placeholder.Headline),
		Location:    firstNonEmpty(d.Location, placeholder.Location),
		Education:   cloneStrings(placeholder.Education),
		Experience:  cloneExperience(placeholder.Experience),
		Skills:      cloneStrings(placeholder.Skills),
		Connections: connections,
		ProfileURL:  url,
	}
	if len(d.Education) > 0 {
		r.Education = cloneStrings(d.Education)
	}
	if len(d.Experience) > 0 {
		r.Experience = cloneExperience(d.Experience)
	}
	if len(d.Skills) > 0 {
		r.Skills = cloneStrings(d.Skills)
	}
	return r
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func (r Record) clone() Record {
	cp := r
	cp.Education = cloneStrings(r.Education)
	cp.Experience = cloneExperience(r.Experience)
	cp.Skills = cloneStrings(r.Skills)
	if r.Analysis != nil {
		a := *r.Analysis
		a.MatchedInternships = cloneStrings(r.Analysis.MatchedInternships)
		a.StrengthAreas = cloneStrings(r.Analysis.StrengthAreas)
		a.ImprovementAreas = cloneStrings(r.Analysis.ImprovementAreas)
		cp.Analysis = &a
	}
	return cp
}

func cloneRecords(rs []Record) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r.clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneExperience(e []Experience) []Experience {
	if e == nil {
		return nil
	}
	out := make([]Experience, len(e))
	copy(out, e)
	return out
}
