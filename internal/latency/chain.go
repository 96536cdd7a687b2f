package latency

import (
	"fmt"

	"github.com/roman-kulish/pipeline-latency/internal/frame"
	"github.com/roman-kulish/pipeline-latency/internal/schema"
)

// Stage is a chain stage present in the resolved schema.
type Stage struct {
	Field frame.Field
	Title string
}

// BuildChain keeps the profile's stages present in the schema, in declared
// order. Absent optional stages are bridged, so their neighbours are diffed
// directly.
func BuildChain(p Profile, s *schema.Schema) ([]Stage, error) {
	var chain []Stage
	for _, spec := range p.Chain {
		role := spec.Field.Role()
		if !s.Has(role) {
			if spec.Required {
				if err := s.Require(role); err != nil {
					return nil, fmt.Errorf("stage %q: %w", spec.Title, err)
				}
			}
			continue
		}

		chain = append(chain, Stage{Field: spec.Field, Title: spec.Title})
	}

	if len(chain) < 2 {
		return nil, fmt.Errorf("profile %q: %d stage(s) present: %w", p.Name, len(chain), ErrShortChain)
	}
	return chain, nil
}
