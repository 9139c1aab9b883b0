package internal

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Metric is one per-segment transfer sample for a single media type.
type Metric struct {
	Type     MediaType
	Bitrate  float64       // observed transfer bitrate in bits per second
	Size     int64         // transferred bytes
	Duration time.Duration // transfer time
}

// MetricChannel carries per-segment transfer samples for one media type.
type MetricChannel chan Metric

// MetricSource groups the per-type metric substreams consumed by the engine.
type MetricSource struct {
	Audio MetricChannel
	Video MetricChannel
}

// Estimator turns raw transfer samples into a smoothed bitrate estimate.
// Construction and activation are decoupled: the estimate cell exists and
// holds its seed value from construction, but upstream consumption only
// starts on Connect. The cell is shared, so any number of consumers observe
// the one estimate driven by the single upstream subscription.
type Estimator interface {
	// Estimate returns the current-value cell with the smoothed bitrate
	// estimate in bits per second.
	Estimate() *Cell[float64]
	// Connect begins consuming upstream metrics and returns the function
	// that stops consumption. Both Connect and the returned function are
	// idempotent.
	Connect() func()
}

// EWMAEstimator smooths transfer samples with an exponentially weighted
// moving average. Samples are weighted by their transfer duration, so a
// long download moves the estimate more than a short one.
type EWMAEstimator struct {
	mediaType MediaType
	source    <-chan Metric
	halfLife  float64 // seconds of accumulated sample weight after which influence halves
	cell      *Cell[float64]
	logger    *slog.Logger

	mu     sync.Mutex
	stopFn func()
}

// NewEWMAEstimator creates an estimator for one media type, seeded with an
// initial estimate. Samples for other media types on the source channel are
// ignored.
func NewEWMAEstimator(source <-chan Metric, mediaType MediaType, halfLife, seed float64,
	logger *slog.Logger) *EWMAEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	if halfLife <= 0 {
		halfLife = DefaultEWMAHalfLife
	}
	return &EWMAEstimator{
		mediaType: mediaType,
		source:    source,
		halfLife:  halfLife,
		cell:      NewCell(seed),
		logger:    logger,
	}
}

// Estimate returns the shared smoothed-estimate cell.
func (e *EWMAEstimator) Estimate() *Cell[float64] {
	return e.cell
}

// Connect starts draining the metric source on its own goroutine. Repeated
// calls return the same stop function.
func (e *EWMAEstimator) Connect() func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopFn != nil {
		return e.stopFn
	}
	done := make(chan struct{})
	var once sync.Once
	e.stopFn = func() {
		once.Do(func() {
			close(done)
		})
	}
	go e.run(done)
	return e.stopFn
}

func (e *EWMAEstimator) run(done <-chan struct{}) {
	estimate := e.cell.Get()
	for {
		select {
		case <-done:
			return
		case m, ok := <-e.source:
			if !ok {
				return
			}
			if m.Type != e.mediaType || m.Bitrate <= 0 {
				continue
			}
			weight := m.Duration.Seconds()
			if weight <= 0 {
				weight = 1
			}
			alpha := math.Pow(0.5, weight/e.halfLife)
			estimate = alpha*estimate + (1-alpha)*m.Bitrate
			e.logger.Debug("bitrate estimate updated",
				"mediaType", e.mediaType,
				"sample", m.Bitrate,
				"estimate", estimate)
			e.cell.Set(estimate)
		}
	}
}
