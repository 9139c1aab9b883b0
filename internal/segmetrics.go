package internal

import (
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Approximate moof + mdat header size per CMAF fragment.
const fragOverheadBytes = 160

// SegmentInfo describes one CMAF fragment of a track: its encoded size in
// bytes and its media duration.
type SegmentInfo struct {
	Size     int64
	Duration time.Duration
}

// ReadSegmentInfo parses a fragmented MP4 track and returns the size and
// media duration of every fragment. These drive simulated download metrics
// with realistic per-segment size variation.
func ReadSegmentInfo(r io.Reader) ([]SegmentInfo, error) {
	m, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode file: %w", err)
	}
	if !m.IsFragmented() {
		return nil, ErrNotFragmented
	}
	if m.Init == nil {
		return nil, ErrNoInitSegment
	}
	timescale := m.Init.Moov.Trak.Mdia.Mdhd.Timescale
	trex := m.Init.Moov.Mvex.Trex
	var out []SegmentInfo
	for _, seg := range m.Segments {
		for _, frag := range seg.Fragments {
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("could not get full samples: %w", err)
			}
			var size int64 = fragOverheadBytes
			var dur uint64
			for _, s := range samples {
				size += int64(len(s.Data))
				dur += uint64(s.Dur)
			}
			out = append(out, SegmentInfo{
				Size:     size,
				Duration: time.Duration(float64(dur) / float64(timescale) * float64(time.Second)),
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFragments
	}
	return out, nil
}

// TransferMetrics models downloading the given segments at linkBitrate bits
// per second and returns the per-segment samples a real downloader would
// report: observed bitrate, transferred bytes and transfer time.
func TransferMetrics(segments []SegmentInfo, mediaType MediaType, linkBitrate float64) []Metric {
	if linkBitrate <= 0 {
		return nil
	}
	out := make([]Metric, 0, len(segments))
	for _, s := range segments {
		bits := float64(s.Size) * 8
		out = append(out, Metric{
			Type:     mediaType,
			Bitrate:  linkBitrate,
			Size:     s.Size,
			Duration: time.Duration(bits / linkBitrate * float64(time.Second)),
		})
	}
	return out
}
