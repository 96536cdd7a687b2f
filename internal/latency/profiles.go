package latency

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProfileFiltered = "filtered"
	ProfileLegacy   = "legacy"
)

//go:embed profiles.yaml
var defaultProfiles string

// ErrUnknownProfile is returned when a profile name is not defined.
var ErrUnknownProfile = errors.New("latency: unknown profile")

// Profiles is a set of named profiles.
type Profiles map[string]Profile

// DefaultProfiles returns the built-in filtered and legacy profiles.
func DefaultProfiles() Profiles {
	p, err := LoadProfiles(strings.NewReader(defaultProfiles))
	if err != nil {
		panic(fmt.Sprintf("latency: built-in profiles: %s", err))
	}
	return p
}

// LoadProfiles reads a YAML list of profiles and validates each one.
func LoadProfiles(r io.Reader) (Profiles, error) {
	var list []Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}

	profiles := make(Profiles, len(list))
	for _, p := range list {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := profiles[p.Name]; ok {
			return nil, fmt.Errorf("profile %q defined twice", p.Name)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Merge returns a copy of ps where every profile of other replaces the one
// of the same name.
func (ps Profiles) Merge(other Profiles) Profiles {
	merged := make(Profiles, len(ps)+len(other))
	for name, p := range ps {
		merged[name] = p
	}
	for name, p := range other {
		merged[name] = p
	}
	return merged
}

// Get looks a profile up by name.
func (ps Profiles) Get(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}
