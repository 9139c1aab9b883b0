package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
)

// tracegen writes bandwidth traces in the JSON format consumed by abrsim.
// Patterns:
//
//	steady - constant bitrate with optional jitter
//	ramp   - linear climb from floor to peak and back
//	square - alternates between floor and peak every step
//	dip    - steady with one sharp drop to the floor in the middle

const (
	defaultSteps   = 30
	defaultStepMS  = 2000
	defaultPeak    = 4_000_000.0
	defaultFloor   = 500_000.0
	defaultPattern = "ramp"
)

type tracePoint struct {
	DurationMS int64   `json:"duration_ms"`
	Bitrate    float64 `json:"bitrate"`
}

func main() {
	out := flag.String("out", "trace.json", "Output file")
	pattern := flag.String("pattern", defaultPattern, "Trace pattern (steady, ramp, square, dip)")
	peak := flag.Float64("peak", defaultPeak, "Peak bitrate in bits per second")
	floor := flag.Float64("floor", defaultFloor, "Floor bitrate in bits per second")
	steps := flag.Int("steps", defaultSteps, "Number of trace points")
	stepMS := flag.Int64("stepms", defaultStepMS, "Duration of each point in milliseconds")
	jitter := flag.Float64("jitter", 0, "Relative jitter per point (0 to 0.5)")
	seed := flag.Int64("seed", 1, "Random seed for jitter")
	flag.Parse()

	if *steps <= 0 || *stepMS <= 0 {
		log.Fatalf("steps and stepms must be positive")
	}
	if *floor <= 0 || *peak < *floor {
		log.Fatalf("need 0 < floor <= peak")
	}
	if *jitter < 0 || *jitter > 0.5 {
		log.Fatalf("jitter must be between 0 and 0.5")
	}

	rnd := rand.New(rand.NewSource(*seed))
	trace := make([]tracePoint, *steps)
	for i := range trace {
		bitrate := bitrateAt(*pattern, i, *steps, *floor, *peak)
		if *jitter > 0 {
			bitrate *= 1 + (rnd.Float64()*2-1)*(*jitter)
		}
		trace[i] = tracePoint{
			DurationMS: *stepMS,
			Bitrate:    math.Max(bitrate, *floor),
		}
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode trace: %v", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}

	totalSec := float64(int64(*steps)*(*stepMS)) / 1000.0
	fmt.Printf("Wrote %d-point %s trace (%.0fs) to %s\n", *steps, *pattern, totalSec, *out)
}

func bitrateAt(pattern string, i, steps int, floor, peak float64) float64 {
	switch pattern {
	case "steady":
		return peak
	case "ramp":
		// Up for the first half, down for the second.
		half := float64(steps) / 2
		pos := float64(i)
		if pos > half {
			pos = float64(steps) - pos
		}
		return floor + (peak-floor)*pos/half
	case "square":
		if i%2 == 0 {
			return floor
		}
		return peak
	case "dip":
		if i >= steps/2-1 && i <= steps/2+1 {
			return floor
		}
		return peak
	default:
		log.Fatalf("Unknown pattern %q", pattern)
		return 0
	}
}
