package adzuna

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	missingText     = "N/A"
	missingLocation = "Unknown"
)

// Posting is a normalized job posting. Absent text fields hold "N/A"
// ("Unknown" for the location) and absent salaries hold zero.
type Posting struct {
	Title       string  `json:"title" yaml:"title"`
	Company     string  `json:"company" yaml:"company"`
	Location    string  `json:"location" yaml:"location"`
	SalaryMin   float64 `json:"salary_min" yaml:"salary_min"`
	SalaryMax   float64 `json:"salary_max" yaml:"salary_max"`
	Description string  `json:"description" yaml:"description"`
	URL         string  `json:"url" yaml:"url"`
}

type rawPosting struct {
	Title   string `mapstructure:"title"`
	Company struct {
		DisplayName string `mapstructure:"display_name"`
	} `mapstructure:"company"`
	Location struct {
		DisplayName string `mapstructure:"display_name"`
	} `mapstructure:"location"`
	SalaryMin   float64 `mapstructure:"salary_min"`
	SalaryMax   float64 `mapstructure:"salary_max"`
	Description string  `mapstructure:"description"`
	RedirectURL string  `mapstructure:"redirect_url"`
}

func (c *Client) normalize(items []map[string]any) []Posting {
	postings := make([]Posting, 0, len(items))
	for i, item := range items {
		posting, err := Normalize(item)
		if err != nil {
			// mapstructure keeps every field it could decode.
			c.logger.Debug("posting decoded partially", zap.Int("index", i), zap.Error(err))
		}
		postings = append(postings, posting)
	}
	return postings
}

// Normalize converts a raw Adzuna result into a Posting. The returned
// posting is always usable; err reports fields that had unexpected types.
func Normalize(item map[string]any) (Posting, error) {
	var raw rawPosting

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return fill(raw), err
	}

	err = decoder.Decode(item)

	return fill(raw), err
}

func fill(raw rawPosting) Posting {
	p := Posting{
		Title:       orDefault(raw.Title, missingText),
		Company:     orDefault(raw.Company.DisplayName, missingText),
		Location:    orDefault(raw.Location.DisplayName, missingLocation),
		SalaryMin:   raw.SalaryMin,
		SalaryMax:   raw.SalaryMax,
		Description: orDefault(raw.Description, missingText),
		URL:         orDefault(raw.RedirectURL, missingText),
	}
	if p.SalaryMin < 0 {
		p.SalaryMin = 0
	}
	if p.SalaryMax < 0 {
		p.SalaryMax = 0
	}
	return p
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}
