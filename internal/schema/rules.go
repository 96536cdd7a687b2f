package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// rule assigns a role to a header. Numbered rules also return the trailing
// sample number of the header.
type rule struct {
	role  Role
	match func(header string) (num int, ok bool)
}

func numbered(role Role, names ...string) rule {
	re := regexp.MustCompile(`^(?:` + strings.Join(names, "|") + `)(\d+)$`)

	return rule{
		role: role,
		match: func(header string) (int, bool) {
			m := re.FindStringSubmatch(header)
			if m == nil {
				return 0, false
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, false
			}
			return n, true
		},
	}
}

func prefixed(role Role, prefix string) rule {
	return rule{
		role: role,
		match: func(header string) (int, bool) {
			return 0, strings.HasPrefix(header, prefix)
		},
	}
}

// rules are evaluated top to bottom, first match wins. The DMA channel group
// must precede the "dma" prefix rule.
var rules = []rule{
	numbered(Timestamps, "timestamp"),
	numbered(Captures, "dolphin"),
	numbered(Transfers, "transfer"),
	numbered(DMAChannels, "dmachannel", "dma_channel"),
	prefixed(Sync, "sync"),
	prefixed(Upload, "upload"),
	prefixed(Bayer, "bayer"),
	prefixed(HDR, "hdr"),
	prefixed(Stitch, "stitch"),
	prefixed(Download, "download"),
	prefixed(Encode, "encode"),
	prefixed(Send, "send"),
	prefixed(Receive, "receive"),
	prefixed(DMA, "dma"),
	prefixed(FrameNumber, "num"),
	prefixed(Dropped, "dropped"),
}

func classify(header string) (Role, int, bool) {
	for _, r := range rules {
		if n, ok := r.match(header); ok {
			return r.role, n, true
		}
	}
	return 0, 0, false
}
