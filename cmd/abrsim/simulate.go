package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Eyevinn/abrselect/internal"
)

// tracePoint is one step of a bandwidth trace. The trace is replayed in
// order and wraps around when the session outlives it.
type tracePoint struct {
	DurationMS int64   `json:"duration_ms"`
	Bitrate    float64 `json:"bitrate"`
}

func loadTrace(path string) ([]tracePoint, error) {
	if path == "" {
		return builtinTrace(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read trace: %w", err)
	}
	var trace []tracePoint
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("could not parse trace: %w", err)
	}
	if len(trace) == 0 {
		return nil, fmt.Errorf("trace %s has no points", path)
	}
	for i, p := range trace {
		if p.DurationMS <= 0 || p.Bitrate <= 0 {
			return nil, fmt.Errorf("trace point %d has non-positive duration or bitrate", i)
		}
	}
	return trace, nil
}

// builtinTrace ramps up, holds, dips sharply, and recovers. Good enough to
// see the engine switch both ways within a minute.
func builtinTrace() []tracePoint {
	return []tracePoint{
		{DurationMS: 10_000, Bitrate: 1_000_000},
		{DurationMS: 15_000, Bitrate: 4_000_000},
		{DurationMS: 10_000, Bitrate: 6_000_000},
		{DurationMS: 10_000, Bitrate: 500_000},
		{DurationMS: 15_000, Bitrate: 3_000_000},
	}
}

const simulatedAudioBitrate = 128_000.0

type simulator struct {
	source   internal.MetricSource
	trace    []tracePoint
	segments []internal.SegmentInfo
	segDur   time.Duration
	logger   *slog.Logger
}

// run emits one download metric per media type every segment duration,
// sized according to the bandwidth trace at the current session time.
func (s *simulator) run(ctx context.Context) {
	ticker := time.NewTicker(s.segDur)
	defer ticker.Stop()

	start := time.Now()
	segIdx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			link := s.bandwidthAt(time.Since(start))
			s.emit(s.source.Video, s.videoMetric(link, segIdx))
			s.emit(s.source.Audio, s.audioMetric(link))
			segIdx++
		}
	}
}

func (s *simulator) videoMetric(link float64, segIdx int) internal.Metric {
	if len(s.segments) > 0 {
		seg := s.segments[segIdx%len(s.segments)]
		return internal.TransferMetrics([]internal.SegmentInfo{seg},
			internal.MediaTypeVideo, link)[0]
	}
	// Synthetic segment: the link is saturated for most of the tick.
	duration := time.Duration(float64(s.segDur) * 0.8)
	size := int64(link * duration.Seconds() / 8)
	return internal.Metric{
		Type:     internal.MediaTypeVideo,
		Bitrate:  link,
		Size:     size,
		Duration: duration,
	}
}

func (s *simulator) audioMetric(link float64) internal.Metric {
	size := int64(simulatedAudioBitrate * s.segDur.Seconds() / 8)
	duration := time.Duration(float64(size*8) / link * float64(time.Second))
	return internal.Metric{
		Type:     internal.MediaTypeAudio,
		Bitrate:  link,
		Size:     size,
		Duration: duration,
	}
}

// emit drops the metric if the engine is not keeping up rather than block
// the simulation clock.
func (s *simulator) emit(ch internal.MetricChannel, m internal.Metric) {
	select {
	case ch <- m:
	default:
		s.logger.Warn("dropped metric", "mediaType", string(m.Type))
	}
}

func (s *simulator) bandwidthAt(elapsed time.Duration) float64 {
	var total time.Duration
	for _, p := range s.trace {
		total += time.Duration(p.DurationMS) * time.Millisecond
	}
	offset := elapsed % total
	for _, p := range s.trace {
		d := time.Duration(p.DurationMS) * time.Millisecond
		if offset < d {
			return p.Bitrate
		}
		offset -= d
	}
	return s.trace[len(s.trace)-1].Bitrate
}
