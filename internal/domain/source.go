package domain

import "time"

// SourceType names a job source adapter.
type SourceType string

const (
	SourceTypeRemoteOK   SourceType = "remoteok_api"
	SourceTypeRSS        SourceType = "rss"
	SourceTypeGreenhouse SourceType = "greenhouse"
	SourceTypeLever      SourceType = "lever"
)

// SourceSpec is one entry of sources.yaml.
type SourceSpec struct {
	Type        SourceType    `yaml:"type" json:"type"`
	Name        string        `yaml:"name" json:"name"`
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	URL         string        `yaml:"url,omitempty" json:"url,omitempty"`
	CompanySlug string        `yaml:"company_slug,omitempty" json:"company_slug,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DisplayName returns Name, or the type when unnamed.
func (s SourceSpec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.Type)
}
