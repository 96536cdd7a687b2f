package schema

import (
	"io"
	"log/slog"
	"slices"
	"strings"
)

// Option configures schema resolution.
type Option func(*resolver)

// WithLogger sets the logger used to report unclassified headers.
func WithLogger(logger *slog.Logger) Option {
	return func(r *resolver) {
		r.logger = logger.With(slog.String("component", "schema"))
	}
}

// WithCeiling admits only samples numbered <= n into the given group role.
// Columns above the ceiling are excluded without error.
func WithCeiling(role Role, n int) Option {
	return func(r *resolver) {
		r.ceilings[role] = n
	}
}

// WithRequiredGroups fails resolution when any of the given group roles
// resolves to zero columns.
func WithRequiredGroups(roles ...Role) Option {
	return func(r *resolver) {
		r.required = append(r.required, roles...)
	}
}

type resolver struct {
	logger   *slog.Logger
	ceilings map[Role]int
	required []Role
}

// Schema is the resolved role to column mapping of a frame log header.
type Schema struct {
	header     []string
	groups     map[Role]*GroupRole
	singletons map[Role]*SingletonRole
	unknown    []string
}

// Resolve classifies the header columns into roles. Unknown headers are
// logged and ignored.
func Resolve(header []string, options ...Option) (*Schema, error) {
	r := resolver{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ceilings: make(map[Role]int),
	}
	for _, option := range options {
		option(&r)
	}

	if len(header) == 0 {
		return nil, ErrEmptyHeader
	}

	s := &Schema{
		header:     slices.Clone(header),
		groups:     make(map[Role]*GroupRole),
		singletons: make(map[Role]*SingletonRole),
	}

	for i, h := range header {
		h = strings.TrimSpace(h)

		role, num, ok := classify(h)
		if !ok {
			r.logger.Warn("unknown header", slog.String("header", h), slog.Int("column", i))
			s.unknown = append(s.unknown, h)
			continue
		}

		if !role.IsGroup() {
			if prev, exists := s.singletons[role]; exists {
				return nil, newError(role, "ambiguous columns %d (%q) and %d (%q)",
					prev.index, header[prev.index], i, h)
			}
			s.singletons[role] = &SingletonRole{role: role, index: i}
			continue
		}

		g, exists := s.groups[role]
		if !exists {
			g = &GroupRole{role: role}
			if c, ok := r.ceilings[role]; ok {
				g.ceiling = &c
			}
			s.groups[role] = g
		}
		if g.ceiling != nil && num > *g.ceiling {
			r.logger.Debug("column above ceiling excluded",
				slog.String("header", h),
				slog.Int("column", i),
				slog.Int("ceiling", *g.ceiling))
			continue
		}
		g.indices = append(g.indices, i)
	}

	// A group whose every column sat above its ceiling is not present at all.
	for role, g := range s.groups {
		if len(g.indices) == 0 {
			delete(s.groups, role)
		}
	}

	if err := s.Require(r.required...); err != nil {
		return nil, err
	}
	return s, nil
}

// Header returns the header the schema was resolved from.
func (s *Schema) Header() []string {
	return slices.Clone(s.header)
}

// Unknown returns the headers that matched no role.
func (s *Schema) Unknown() []string {
	return slices.Clone(s.unknown)
}

// Has reports whether the role resolved to at least one column.
func (s *Schema) Has(role Role) bool {
	if role.IsGroup() {
		_, ok := s.groups[role]
		return ok
	}
	_, ok := s.singletons[role]
	return ok
}

// HasUpload reports whether the pipeline logged a separate upload stage.
func (s *Schema) HasUpload() bool {
	return s.Has(Upload)
}

// Require returns an error naming the first role that is not present.
func (s *Schema) Require(roles ...Role) error {
	for _, role := range roles {
		if s.Has(role) {
			continue
		}
		if role.IsGroup() {
			return newError(role, "no columns resolved for required group")
		}
		return newError(role, "required column is missing")
	}
	return nil
}

// Column returns the resolved mapping of the role.
func (s *Schema) Column(role Role) (Column, bool) {
	if role.IsGroup() {
		g, ok := s.groups[role]
		if !ok {
			return nil, false
		}
		return *g, true
	}
	c, ok := s.singletons[role]
	if !ok {
		return nil, false
	}
	return *c, true
}

// Group returns the group mapping of the role.
func (s *Schema) Group(role Role) (GroupRole, bool) {
	g, ok := s.groups[role]
	if !ok {
		return GroupRole{}, false
	}
	return *g, true
}

// Singleton returns the single-column mapping of the role.
func (s *Schema) Singleton(role Role) (SingletonRole, bool) {
	c, ok := s.singletons[role]
	if !ok {
		return SingletonRole{}, false
	}
	return *c, true
}

// Roles returns the present roles in declaration order.
func (s *Schema) Roles() []Role {
	var roles []Role
	for r := Timestamps; r <= Dropped; r++ {
		if s.Has(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// MaxIndex returns the highest column index referenced by any role, or -1
// when nothing was resolved.
func (s *Schema) MaxIndex() int {
	m := -1
	for _, g := range s.groups {
		for _, i := range g.indices {
			m = max(m, i)
		}
	}
	for _, c := range s.singletons {
		m = max(m, c.index)
	}
	return m
}

// TimingColumns returns, in header order, every resolved column carrying a
// time value.
func (s *Schema) TimingColumns() []int {
	var cols []int
	for _, g := range s.groups {
		cols = append(cols, g.indices...)
	}
	for _, c := range s.singletons {
		if c.role.IsTiming() {
			cols = append(cols, c.index)
		}
	}
	slices.Sort(cols)
	return cols
}
