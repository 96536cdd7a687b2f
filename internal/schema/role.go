package schema

// Role is the semantic label of one or more columns of the frame log.
type Role int

const (
	// Group roles: redundant samples of the same pipeline phase.
	Timestamps Role = iota
	Captures
	Transfers
	DMAChannels

	// Singleton roles: one column each.
	Sync
	Upload
	Bayer
	HDR
	Stitch
	Download
	Encode
	DMA
	Send
	Receive
	FrameNumber
	Dropped
)

var roleNames = map[Role]string{
	Timestamps:  "timestamps",
	Captures:    "captures",
	Transfers:   "transfers",
	DMAChannels: "dma-channels",
	Sync:        "sync",
	Upload:      "upload",
	Bayer:       "bayer",
	HDR:         "hdr",
	Stitch:      "stitch",
	Download:    "download",
	Encode:      "encode",
	DMA:         "dma",
	Send:        "send",
	Receive:     "receive",
	FrameNumber: "frame-number",
	Dropped:     "dropped",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "unknown"
}

// IsGroup reports whether the role consolidates several numbered columns.
func (r Role) IsGroup() bool {
	return r >= Timestamps && r <= DMAChannels
}

// IsTiming reports whether the columns of the role carry time values.
// Frame numbers and the dropped flag are diagnostic pass-through fields.
func (r Role) IsTiming() bool {
	return r != FrameNumber && r != Dropped
}

// ParseRole looks a role up by its name, as used in configuration files.
func ParseRole(name string) (Role, bool) {
	for r, n := range roleNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Column is the resolved mapping of a role onto column indices.
// It is either a GroupRole or a SingletonRole.
type Column interface {
	Role() Role
	Indices() []int

	column()
}

// GroupRole is an ordered set of column indices sharing a numbered name
// pattern, e.g. timestamp0, timestamp1.
type GroupRole struct {
	role    Role
	indices []int
	ceiling *int
}

func (g GroupRole) Role() Role { return g.role }

// Indices returns the column indices in header order.
func (g GroupRole) Indices() []int {
	return append([]int(nil), g.indices...)
}

// Ceiling returns the highest sample number admitted to the group, if any.
func (g GroupRole) Ceiling() (int, bool) {
	if g.ceiling == nil {
		return 0, false
	}
	return *g.ceiling, true
}

func (GroupRole) column() {}

// SingletonRole maps a role onto exactly one column.
type SingletonRole struct {
	role  Role
	index int
}

func (s SingletonRole) Role() Role     { return s.role }
func (s SingletonRole) Index() int     { return s.index }
func (s SingletonRole) Indices() []int { return []int{s.index} }

func (SingletonRole) column() {}
