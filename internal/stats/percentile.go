package stats

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Percentile is a percentile parameter in the range [0, 100].
type Percentile float64

// ParsePercentile parses "99.9", "p99.9" or "P99.9".
func ParsePercentile(s string) (Percentile, error) {
	if len(s) > 0 && (s[0] == 'p' || s[0] == 'P') {
		s = s[1:]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("stats.Percentile: failed to parse: %s", err)
	}

	p := Percentile(v)
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return p, nil
}

func (p Percentile) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

func (p Percentile) Validate() error {
	if math.IsNaN(float64(p)) || p < 0 || p > 100 {
		return fmt.Errorf("stats.Percentile: must be within [0, 100]: %s given", p)
	}
	return nil
}

// Set implements flag.Value.
func (p *Percentile) Set(s string) error {
	v, err := ParsePercentile(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Decode implements envconfig.Decoder.
func (p *Percentile) Decode(value string) error {
	return p.Set(value)
}

func (p *Percentile) UnmarshalYAML(value *yaml.Node) error {
	return p.Set(value.Value)
}

func (p Percentile) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}
