package frame

import "github.com/roman-kulish/pipeline-latency/internal/schema"

// Field identifies one value of a Record.
type Field int

const (
	TS Field = iota
	TSSpread
	Capture
	CaptureSpread
	Transfer
	TransferSpread
	DMAChannel
	DMAChannelSpread
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
	DroppedFlag

	numFields
)

var fieldNames = [numFields]string{
	TS:               "ts",
	TSSpread:         "ts-spread",
	Capture:          "capture",
	CaptureSpread:    "capture-spread",
	Transfer:         "transfer",
	TransferSpread:   "transfer-spread",
	DMAChannel:       "dma-channel",
	DMAChannelSpread: "dma-channel-spread",
	Sync:             "sync",
	Upload:           "upload",
	Bayer:            "bayer",
	HDR:              "hdr",
	Stitch:           "stitch",
	Download:         "download",
	Encode:           "encode",
	DMA:              "dma",
	Send:             "send",
	Receive:          "receive",
	FrameNumber:      "frame-number",
	DroppedFlag:      "dropped",
}

func (f Field) String() string {
	if f >= 0 && f < numFields {
		return fieldNames[f]
	}
	return "unknown"
}

// ParseField looks a field up by name.
func ParseField(name string) (Field, bool) {
	for f, n := range fieldNames {
		if n == name {
			return Field(f), true
		}
	}
	return 0, false
}

// groupFields maps a group role onto its (mean, spread) fields.
var groupFields = map[schema.Role][2]Field{
	schema.Timestamps:  {TS, TSSpread},
	schema.Captures:    {Capture, CaptureSpread},
	schema.Transfers:   {Transfer, TransferSpread},
	schema.DMAChannels: {DMAChannel, DMAChannelSpread},
}

var singletonFields = map[schema.Role]Field{
	schema.Sync:        Sync,
	schema.Upload:      Upload,
	schema.Bayer:       Bayer,
	schema.HDR:         HDR,
	schema.Stitch:      Stitch,
	schema.Download:    Download,
	schema.Encode:      Encode,
	schema.DMA:         DMA,
	schema.Send:        Send,
	schema.Receive:     Receive,
	schema.FrameNumber: FrameNumber,
	schema.Dropped:     DroppedFlag,
}

// Role returns the schema role the field is derived from.
func (f Field) Role() schema.Role {
	for role, fields := range groupFields {
		if fields[0] == f || fields[1] == f {
			return role
		}
	}
	for role, field := range singletonFields {
		if field == f {
			return role
		}
	}
	return -1
}

// FieldOf returns the representative field of a role: the mean for group
// roles, the value itself for singletons.
func FieldOf(role schema.Role) (Field, bool) {
	if fields, ok := groupFields[role]; ok {
		return fields[0], true
	}
	f, ok := singletonFields[role]
	return f, ok
}
