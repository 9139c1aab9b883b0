package internal

import (
	"math"
	"sort"
)

// MediaType identifies one of the selectable media kinds.
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
	MediaTypeText  MediaType = "text"
)

// UnboundedBitrate is the sentinel for "no bitrate limit". It is a real,
// comparable value rather than a missing one, so the min/priority arithmetic
// in the representation resolver never has to special-case absence. It is
// distinct from "unset": a cell holding UnboundedBitrate has been decided.
const UnboundedBitrate = math.MaxInt

// Representation is one encoded quality variant within an adaptation.
// Width is in pixels and only meaningful for video; 0 means unknown.
// Representations are supplied by the manifest layer and never mutated here.
type Representation struct {
	ID      string
	Bitrate int
	Width   int
}

// Adaptation is a selectable track of one media type with its ladder of
// representations. An adaptation always carries at least one representation.
// The manifest layer owns adaptations; this package keeps read-only
// references for at most the duration of one resolution call.
type Adaptation struct {
	Type               MediaType
	Language           string
	IsAudioDescription bool
	IsClosedCaption    bool
	Representations    []Representation
}

// Bitrates returns the distinct available bitrates in ascending order.
func (a *Adaptation) Bitrates() []int {
	seen := make(map[int]bool, len(a.Representations))
	out := make([]int, 0, len(a.Representations))
	for _, r := range a.Representations {
		if !seen[r.Bitrate] {
			seen[r.Bitrate] = true
			out = append(out, r.Bitrate)
		}
	}
	sort.Ints(out)
	return out
}

// RepresentationFor returns the first representation with the given bitrate,
// or nil when none matches.
func (a *Adaptation) RepresentationFor(bitrate int) *Representation {
	for i := range a.Representations {
		if a.Representations[i].Bitrate == bitrate {
			return &a.Representations[i]
		}
	}
	return nil
}

// AudioTrackPreference selects the wanted audio track.
type AudioTrackPreference struct {
	Language         string
	AudioDescription bool
}

// TextTrackPreference selects the wanted text track. A nil pointer is the
// "no text track wanted" sentinel.
type TextTrackPreference struct {
	Language      string
	ClosedCaption bool
}

// DeviceState exposes the externally owned viewport and visibility state.
// Width is the viewport width in pixels, Hidden reports background state.
type DeviceState struct {
	Width  *Cell[int]
	Hidden *Cell[bool]
}
