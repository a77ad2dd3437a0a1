// Package insight defines the insight record model and a tolerant
// decoder for insight datasets. Every field of a record is
// optional; a field that is missing, empty, or carries the wrong
// JSON type decodes as absent rather than failing the record.
package insight

// Record is one insight datum.
type Record struct {
	ID         string   `json:"_id,omitempty"`
	Title      *string  `json:"title,omitempty"`
	Insight    *string  `json:"insight,omitempty"`
	URL        *string  `json:"url,omitempty"`
	Topic      *string  `json:"topic,omitempty"`
	Sector     *string  `json:"sector,omitempty"`
	Region     *string  `json:"region,omitempty"`
	Pestle     *string  `json:"pestle,omitempty"`
	Country    *string  `json:"country,omitempty"`
	Source     *string  `json:"source,omitempty"`
	City       *string  `json:"city,omitempty"`
	StartYear  Year     `json:"start_year,omitzero"`
	EndYear    Year     `json:"end_year,omitzero"`
	Likelihood *float64 `json:"likelihood,omitempty"`
	Relevance  *float64 `json:"relevance,omitempty"`
	Intensity  *float64 `json:"intensity,omitempty"`
	Added      *string  `json:"added,omitempty"`
	Published  *string  `json:"published,omitempty"`
}

// Presence follows the dashboard's truthiness rule: a string is
// present when set and non-empty, a number when set and non-zero.
// A stored zero intensity therefore never contributes to an
// aggregate keyed on intensity.

func text(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

func number(p *float64) (float64, bool) {
	if p == nil || *p == 0 {
		return 0, false
	}
	return *p, true
}

// TopicValue returns the topic and whether it is present.
func (r Record) TopicValue() (string, bool) { return text(r.Topic) }

// SectorValue returns the sector and whether it is present.
func (r Record) SectorValue() (string, bool) { return text(r.Sector) }

// RegionValue returns the region and whether it is present.
func (r Record) RegionValue() (string, bool) { return text(r.Region) }

// CountryValue returns the country and whether it is present.
func (r Record) CountryValue() (string, bool) { return text(r.Country) }

// PestleValue returns the PESTLE category and whether it is present.
func (r Record) PestleValue() (string, bool) { return text(r.Pestle) }

// IntensityValue returns the intensity and whether it is present.
func (r Record) IntensityValue() (float64, bool) { return number(r.Intensity) }

// LikelihoodValue returns the likelihood and whether it is present.
func (r Record) LikelihoodValue() (float64, bool) { return number(r.Likelihood) }

// RelevanceValue returns the relevance and whether it is present.
func (r Record) RelevanceValue() (float64, bool) { return number(r.Relevance) }

// EndYearValue returns the end year and whether it is present.
func (r Record) EndYearValue() (Year, bool) {
	return r.EndYear, !r.EndYear.IsZero()
}

// Dimension returns the string value of a categorical field by
// its dataset key. Unknown keys report absent.
func (r Record) Dimension(key string) (string, bool) {
	switch key {
	case "topic":
		return text(r.Topic)
	case "sector":
		return text(r.Sector)
	case "region":
		return text(r.Region)
	case "pestle":
		return text(r.Pestle)
	case "country":
		return text(r.Country)
	case "source":
		return text(r.Source)
	case "city":
		return text(r.City)
	case "end_year":
		if r.EndYear.IsZero() {
			return "", false
		}
		return r.EndYear.String(), true
	}
	return "", false
}

// TitleText returns the title, or "" when absent.
func (r Record) TitleText() string {
	s, _ := text(r.Title)
	return s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
