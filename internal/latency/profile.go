package latency

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/pipeline-latency/internal/frame"
	"github.com/roman-kulish/pipeline-latency/internal/stats"
)

// DiffMode selects which records a stage difference is taken between.
type DiffMode int

const (
	// DiffRow diffs two fields of the same record.
	DiffRow DiffMode = iota

	// DiffAdjacent diffs the earlier field of record i-1 against the later
	// field of record i.
	DiffAdjacent
)

var diffModeNames = map[DiffMode]string{
	DiffRow:      "row",
	DiffAdjacent: "adjacent",
}

func (m DiffMode) String() string {
	if n, ok := diffModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("DiffMode(%d)", int(m))
}

// ParseDiffMode parses "row" or "adjacent".
func ParseDiffMode(s string) (DiffMode, error) {
	for m, n := range diffModeNames {
		if n == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("latency.DiffMode: unknown mode %q", s)
}

// Set implements flag.Value.
func (m *DiffMode) Set(s string) error {
	v, err := ParseDiffMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Decode implements envconfig.Decoder.
func (m *DiffMode) Decode(value string) error {
	return m.Set(value)
}

func (m *DiffMode) UnmarshalYAML(value *yaml.Node) error {
	return m.Set(value.Value)
}

func (m DiffMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// StageSpec declares one stage of a profile's chain. Optional stages absent
// from the schema are bridged; a missing required stage fails the report.
type StageSpec struct {
	Field    frame.Field
	Title    string
	Required bool
}

type stageSpecYAML struct {
	Field    string `yaml:"field"`
	Title    string `yaml:"title"`
	Required bool   `yaml:"required"`
}

func (s *StageSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw stageSpecYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	f, ok := frame.ParseField(raw.Field)
	if !ok {
		return fmt.Errorf("latency.StageSpec: unknown field %q", raw.Field)
	}

	*s = StageSpec{Field: f, Title: raw.Title, Required: raw.Required}
	return nil
}

func (s StageSpec) MarshalYAML() (interface{}, error) {
	return stageSpecYAML{Field: s.Field.String(), Title: s.Title, Required: s.Required}, nil
}

// Profile is a named report variant: its stage chain, filtering policy and
// tail percentile.
type Profile struct {
	Name string `yaml:"name" validate:"required"`

	// Filter enables dropped-frame and glitch filtering.
	Filter bool `yaml:"filter"`

	TailPercentile stats.Percentile `yaml:"tailPercentile" validate:"gte=0,lte=100"`

	// GlitchThreshold is in seconds. Zero disables the glitch filter.
	GlitchThreshold float64 `yaml:"glitchThreshold" validate:"gte=0"`

	// WarmupFrames leading records are left out of every stage series and
	// the total. The timestamp difference line always covers every frame.
	WarmupFrames int `yaml:"warmupFrames" validate:"gte=0"`

	DiffMode DiffMode `yaml:"diffMode"`

	Chain []StageSpec `yaml:"chain" validate:"min=2"`
}

var (
	ErrShortChain     = errors.New("latency: stage chain needs at least two stages")
	ErrDuplicateStage = errors.New("latency: stage declared twice")
)

// Validate checks the profile for internal consistency.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return errors.New("latency.Profile: name is required")
	}
	if err := p.TailPercentile.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if p.GlitchThreshold < 0 {
		return fmt.Errorf("profile %q: glitch threshold must not be negative: %g given", p.Name, p.GlitchThreshold)
	}
	if p.WarmupFrames < 0 {
		return fmt.Errorf("profile %q: warm-up frames must not be negative: %d given", p.Name, p.WarmupFrames)
	}
	if _, ok := diffModeNames[p.DiffMode]; !ok {
		return fmt.Errorf("profile %q: unsupported diff mode %s", p.Name, p.DiffMode)
	}
	if len(p.Chain) < 2 {
		return fmt.Errorf("profile %q: %w", p.Name, ErrShortChain)
	}

	seen := make(map[frame.Field]bool, len(p.Chain))
	for _, s := range p.Chain {
		if seen[s.Field] {
			return fmt.Errorf("profile %q: %s: %w", p.Name, s.Field, ErrDuplicateStage)
		}
		seen[s.Field] = true

		if s.Title == "" {
			return fmt.Errorf("profile %q: stage %s has no title", p.Name, s.Field)
		}
	}

	return nil
}
