package internal

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Default configuration values. They only apply through Config.withDefaults,
// never as process-wide state, so concurrent sessions cannot interfere.
const (
	DefaultBufferSize          = 30.0 // seconds
	DefaultMarginThreshold     = 0.3
	DefaultDebounceWindow      = 2 * time.Second
	DefaultEWMAHalfLife        = 8.0 // seconds
	DefaultInitialAudioBitrate = 64_000.0
	DefaultInitialVideoBitrate = 300_000.0
	DefaultAudioLanguage       = "eng"
)

// Config carries the per-session defaults and policies of the selection
// engine. Zero values fall back to the documented defaults.
type Config struct {
	// DefaultAudioTrack is the initial audio preference. An empty language
	// falls back to DefaultAudioLanguage.
	DefaultAudioTrack AudioTrackPreference
	// DefaultTextTrack is the initial text preference; nil means no text
	// track wanted.
	DefaultTextTrack *TextTrackPreference
	// DefaultBufferSize is the initial target buffer duration in seconds
	// for every media type.
	DefaultBufferSize float64
	// MarginThreshold is the safety fraction subtracted from the smoothed
	// estimate before matching it to the ladder.
	MarginThreshold float64
	// DebounceWindow is how long the estimate must be stable before a new
	// ladder value propagates to the selection.
	DebounceWindow time.Duration
	// InitialAudioBitrate and InitialVideoBitrate seed the estimators
	// before any real sample has arrived.
	InitialAudioBitrate float64
	InitialVideoBitrate float64
	// MaxAudioBitrate and MaxVideoBitrate are the operator ceilings;
	// 0 means unbounded.
	MaxAudioBitrate int
	MaxVideoBitrate int
	// LimitVideoWidth caps video quality at the viewport's useful bitrate.
	LimitVideoWidth bool
	// ThrottleWhenHidden drops video to the lowest ladder entry while the
	// device reports background state.
	ThrottleWhenHidden bool
	// EWMAHalfLife tunes the default estimators, in seconds.
	EWMAHalfLife float64
	// AudioEstimator and VideoEstimator override the default EWMA
	// estimators; when set, the engine's metric source is not consumed for
	// that type.
	AudioEstimator Estimator
	VideoEstimator Estimator

	Logger  *slog.Logger
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	if c.DefaultAudioTrack.Language == "" {
		c.DefaultAudioTrack.Language = DefaultAudioLanguage
	}
	if c.DefaultBufferSize <= 0 {
		c.DefaultBufferSize = DefaultBufferSize
	}
	if c.MarginThreshold <= 0 || c.MarginThreshold >= 1 {
		c.MarginThreshold = DefaultMarginThreshold
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.InitialAudioBitrate <= 0 {
		c.InitialAudioBitrate = DefaultInitialAudioBitrate
	}
	if c.InitialVideoBitrate <= 0 {
		c.InitialVideoBitrate = DefaultInitialVideoBitrate
	}
	if c.MaxAudioBitrate <= 0 {
		c.MaxAudioBitrate = UnboundedBitrate
	}
	if c.MaxVideoBitrate <= 0 {
		c.MaxVideoBitrate = UnboundedBitrate
	}
	if c.EWMAHalfLife <= 0 {
		c.EWMAHalfLife = DefaultEWMAHalfLife
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// constraint groups the three independently settable cells for one media
// type: user-pinned bitrate, operator ceiling and smoothed estimate.
type constraint struct {
	user     *Cell[int]
	max      *Cell[int]
	estimate *Cell[float64]
}

// Engine owns all mutable preference and constraint state and wires the
// estimator, adaptation and representation stages together. It is
// constructed once per playback session and torn down with Unsubscribe.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	device DeviceState

	audioPref *Cell[AudioTrackPreference]
	textPref  *Cell[*TextTrackPreference]

	audio constraint
	video constraint

	bufferSizes map[MediaType]*Cell[float64]

	mu     sync.Mutex
	stops  []func()
	closed bool
}

// New constructs a selection engine over the given metric and device-state
// sources. The estimators are connected immediately: metric consumption is
// an active, resource-holding subscription released by Unsubscribe.
func New(metrics MetricSource, device DeviceState, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	if device.Width == nil {
		device.Width = NewCell(0)
	}
	if device.Hidden == nil {
		device.Hidden = NewCell(false)
	}
	e := &Engine{
		cfg:       cfg,
		logger:    cfg.Logger,
		device:    device,
		audioPref: NewCell(cfg.DefaultAudioTrack),
		textPref:  NewCell(cfg.DefaultTextTrack),
		bufferSizes: map[MediaType]*Cell[float64]{
			MediaTypeAudio: NewCell(cfg.DefaultBufferSize),
			MediaTypeVideo: NewCell(cfg.DefaultBufferSize),
			MediaTypeText:  NewCell(cfg.DefaultBufferSize),
		},
	}

	audioEst := cfg.AudioEstimator
	if audioEst == nil {
		audioEst = NewEWMAEstimator(metrics.Audio, MediaTypeAudio, cfg.EWMAHalfLife,
			cfg.InitialAudioBitrate, cfg.Logger)
	}
	videoEst := cfg.VideoEstimator
	if videoEst == nil {
		videoEst = NewEWMAEstimator(metrics.Video, MediaTypeVideo, cfg.EWMAHalfLife,
			cfg.InitialVideoBitrate, cfg.Logger)
	}
	e.audio = constraint{
		user:     NewCell(UnboundedBitrate),
		max:      NewCell(cfg.MaxAudioBitrate),
		estimate: audioEst.Estimate(),
	}
	e.video = constraint{
		user:     NewCell(UnboundedBitrate),
		max:      NewCell(cfg.MaxVideoBitrate),
		estimate: videoEst.Estimate(),
	}
	e.stops = append(e.stops, audioEst.Connect(), videoEst.Connect())

	if cfg.Metrics != nil {
		e.stops = append(e.stops,
			e.audio.estimate.Subscribe(func(v float64) {
				cfg.Metrics.SetEstimate(MediaTypeAudio, v)
			}),
			e.video.estimate.Subscribe(func(v float64) {
				cfg.Metrics.SetEstimate(MediaTypeVideo, v)
			}),
		)
	}
	return e
}

// SetAudioTrack replaces the current audio preference. It takes effect on
// the next adaptation recomputation.
func (e *Engine) SetAudioTrack(pref AudioTrackPreference) {
	e.audioPref.Set(pref)
}

// GetAudioTrack returns the current audio preference.
func (e *Engine) GetAudioTrack() AudioTrackPreference {
	return e.audioPref.Get()
}

// SetTextTrack replaces the current text preference; nil disables text.
func (e *Engine) SetTextTrack(pref *TextTrackPreference) {
	e.textPref.Set(pref)
}

// GetTextTrack returns the current text preference, nil when text is off.
func (e *Engine) GetTextTrack() *TextTrackPreference {
	return e.textPref.Get()
}

// SetAudioBitrate pins the audio bitrate. Any non-positive value clears the
// pin and restores automatic selection.
func (e *Engine) SetAudioBitrate(bps int) {
	e.audio.user.Set(normalizeBitrate(bps))
}

// SetVideoBitrate pins the video bitrate. Any non-positive value clears the
// pin and restores automatic selection.
func (e *Engine) SetVideoBitrate(bps int) {
	e.video.user.Set(normalizeBitrate(bps))
}

// SetAudioMaxBitrate sets the operator ceiling for audio; non-positive
// values mean unbounded.
func (e *Engine) SetAudioMaxBitrate(bps int) {
	e.audio.max.Set(normalizeBitrate(bps))
}

// SetVideoMaxBitrate sets the operator ceiling for video; non-positive
// values mean unbounded.
func (e *Engine) SetVideoMaxBitrate(bps int) {
	e.video.max.Set(normalizeBitrate(bps))
}

// SetAudioBufferSize sets the audio target buffer duration in seconds.
// Non-positive or NaN values reset to the configured default.
func (e *Engine) SetAudioBufferSize(seconds float64) {
	e.setBufferSize(MediaTypeAudio, seconds)
}

// SetVideoBufferSize sets the video target buffer duration in seconds.
// Non-positive or NaN values reset to the configured default.
func (e *Engine) SetVideoBufferSize(seconds float64) {
	e.setBufferSize(MediaTypeVideo, seconds)
}

// SetTextBufferSize sets the text target buffer duration in seconds.
// Non-positive or NaN values reset to the configured default.
func (e *Engine) SetTextBufferSize(seconds float64) {
	e.setBufferSize(MediaTypeText, seconds)
}

func (e *Engine) setBufferSize(mt MediaType, seconds float64) {
	if math.IsNaN(seconds) || seconds <= 0 {
		seconds = e.cfg.DefaultBufferSize
	}
	e.bufferSizes[mt].Set(seconds)
}

// AverageBitrates returns the live smoothed-estimate cells keyed by media
// type, for diagnostics and UI.
func (e *Engine) AverageBitrates() map[MediaType]*Cell[float64] {
	return map[MediaType]*Cell[float64]{
		MediaTypeAudio: e.audio.estimate,
		MediaTypeVideo: e.video.estimate,
	}
}

// AdaptationsChoice returns the adaptation selection stream for one media
// type over a fixed candidate list. The stream emits the current choice on
// subscription and again on every distinct preference change. Audio always
// yields a track for a non-empty candidate list; text may yield nil.
func (e *Engine) AdaptationsChoice(mt MediaType, candidates []*Adaptation) Observable[*Adaptation] {
	switch mt {
	case MediaTypeAudio:
		prefs := Distinct(Observable[AudioTrackPreference](e.audioPref),
			func(a, b AudioTrackPreference) bool { return a == b })
		return Map(prefs, func(p AudioTrackPreference) *Adaptation {
			return ChooseAudioAdaptation(candidates, p)
		})
	case MediaTypeText:
		prefs := Distinct(Observable[*TextTrackPreference](e.textPref), textPrefEqual)
		return Map(prefs, func(p *TextTrackPreference) *Adaptation {
			return ChooseTextAdaptation(candidates, p)
		})
	default:
		if len(candidates) == 0 {
			return Just[*Adaptation](nil)
		}
		return Just(candidates[0])
	}
}

// Unsubscribe tears the engine down, releasing the estimator subscriptions.
// It is idempotent: a second call is a no-op. Setters remain usable after
// teardown but no consumer is driven by the detached estimator chain.
func (e *Engine) Unsubscribe() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	stops := e.stops
	e.stops = nil
	e.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
	e.logger.Debug("selection engine torn down")
}

func (e *Engine) constraintFor(mt MediaType) constraint {
	if mt == MediaTypeAudio {
		return e.audio
	}
	return e.video
}

func normalizeBitrate(bps int) int {
	if bps <= 0 {
		return UnboundedBitrate
	}
	return bps
}

func textPrefEqual(a, b *TextTrackPreference) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
