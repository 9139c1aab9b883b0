package internal

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEstimator struct {
	cell *Cell[float64]
}

func (f *fakeEstimator) Estimate() *Cell[float64] { return f.cell }
func (f *fakeEstimator) Connect() func()          { return func() {} }

func videoAdaptation() *Adaptation {
	return &Adaptation{Type: MediaTypeVideo, Representations: []Representation{
		{ID: "v300", Bitrate: 300_000, Width: 640},
		{ID: "v750", Bitrate: 750_000, Width: 1280},
		{ID: "v1500", Bitrate: 1_500_000, Width: 1920},
		{ID: "v3000", Bitrate: 3_000_000, Width: 3840},
	}}
}

// newTestEngine wires an engine with deterministic fake estimators and a
// short settling window so estimate-driven switches are quick to observe.
func newTestEngine(t *testing.T, cfg Config, videoEstimate float64) (*Engine, *Cell[float64], DeviceState) {
	t.Helper()
	videoEst := &fakeEstimator{cell: NewCell(videoEstimate)}
	cfg.VideoEstimator = videoEst
	cfg.AudioEstimator = &fakeEstimator{cell: NewCell(64_000.0)}
	if cfg.DebounceWindow == 0 {
		cfg.DebounceWindow = 10 * time.Millisecond
	}
	device := DeviceState{Width: NewCell(1920), Hidden: NewCell(false)}
	e := New(MetricSource{}, device, cfg)
	t.Cleanup(e.Unsubscribe)
	return e, videoEst.cell, device
}

type repCollector struct {
	mu   sync.Mutex
	reps []*Representation
}

func (c *repCollector) add(r *Representation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reps = append(c.reps, r)
}

func (c *repCollector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.reps))
	for i, r := range c.reps {
		out[i] = r.ID
	}
	return out
}

func TestInitialSelectionUsesSeedEstimateWithoutMargin(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 1_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	// no margin on the very first estimate: closest at or below 1000k
	require.Equal(t, []string{"v750"}, col.ids())
}

func TestEstimateChangeAppliesMarginAfterSettling(t *testing.T) {
	e, estimate, _ := newTestEngine(t, Config{}, 1_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	estimate.Set(3_000_000)

	// 3000k/3000k misses the 0.3 margin, 1500k/3000k satisfies it
	require.Eventually(t, func() bool {
		ids := col.ids()
		return len(ids) == 2 && ids[1] == "v1500"
	}, time.Second, 5*time.Millisecond)
}

func TestNoisyEstimateDoesNotCauseSwitch(t *testing.T) {
	e, estimate, _ := newTestEngine(t, Config{}, 1_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	// 750k/1100k = 0.68 still satisfies the margin, so the pick is stable
	estimate.Set(1_100_000)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, []string{"v750"}, col.ids())
}

func TestUserPinnedBitrateWinsOutright(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 1_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	e.SetVideoBitrate(300_000)
	require.Equal(t, []string{"v750", "v300"}, col.ids())

	// pinning the same value again does not re-emit
	e.SetVideoBitrate(300_000)
	require.Equal(t, []string{"v750", "v300"}, col.ids())

	// a non-positive value clears the pin and restores automatic selection
	e.SetVideoBitrate(0)
	require.Equal(t, []string{"v750", "v300", "v750"}, col.ids())
}

func TestOperatorCeilingCapsAutomaticSelection(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 3_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	require.Equal(t, []string{"v3000"}, col.ids())

	e.SetVideoMaxBitrate(800_000)
	require.Equal(t, []string{"v3000", "v750"}, col.ids())

	e.SetVideoMaxBitrate(-1) // unbounded again
	require.Equal(t, []string{"v3000", "v750", "v3000"}, col.ids())
}

func TestHiddenThrottleDropsToLowestLadderEntry(t *testing.T) {
	e, _, device := newTestEngine(t, Config{ThrottleWhenHidden: true}, 3_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	device.Hidden.Set(true)
	require.Equal(t, []string{"v3000", "v300"}, col.ids())

	device.Hidden.Set(false)
	require.Equal(t, []string{"v3000", "v300", "v3000"}, col.ids())
}

func TestViewportWidthLimitsQuality(t *testing.T) {
	e, _, device := newTestEngine(t, Config{LimitVideoWidth: true}, 10_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	// viewport is 1920 wide: representations beyond the 1920 tier are useless
	require.Equal(t, []string{"v1500"}, col.ids())

	device.Width.Set(3840)
	require.Equal(t, []string{"v1500", "v3000"}, col.ids())
}

func TestSingleRepresentationIsConstant(t *testing.T) {
	e, estimate, _ := newTestEngine(t, Config{}, 1_000_000)

	single := &Adaptation{Type: MediaTypeVideo, Representations: []Representation{
		{ID: "only", Bitrate: 500_000},
	}}
	adapter := e.BufferAdapters(single)
	col := &repCollector{}
	stop := adapter.Representations.Subscribe(col.add)
	defer stop()

	estimate.Set(5_000_000)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, []string{"only"}, col.ids())
}

func TestBufferAdapterExposesBufferSizeCell(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 1_000_000)

	adapter := e.BufferAdapters(videoAdaptation())
	require.Equal(t, DefaultBufferSize, adapter.BufferSize.Get())

	e.SetVideoBufferSize(12)
	require.Equal(t, 12.0, adapter.BufferSize.Get())

	// invalid values reset to the configured default
	e.SetVideoBufferSize(-1)
	require.Equal(t, DefaultBufferSize, adapter.BufferSize.Get())
	e.SetVideoBufferSize(math.NaN())
	require.Equal(t, DefaultBufferSize, adapter.BufferSize.Get())
}

func TestAdaptationsChoiceAudio(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 1_000_000)
	candidates := audioCandidates()

	var mu sync.Mutex
	var got []*Adaptation
	stop := e.AdaptationsChoice(MediaTypeAudio, candidates).Subscribe(func(a *Adaptation) {
		mu.Lock()
		got = append(got, a)
		mu.Unlock()
	})
	defer stop()

	// default preference resolves immediately
	require.Len(t, got, 1)
	require.Equal(t, "eng", got[0].Language)

	e.SetAudioTrack(AudioTrackPreference{Language: "fr"})
	require.Len(t, got, 2)
	require.Equal(t, "fra", got[1].Language)

	// duplicate preference does not trigger recomputation
	e.SetAudioTrack(AudioTrackPreference{Language: "fr"})
	require.Len(t, got, 2)
}

func TestAdaptationsChoiceTextNoneSentinel(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 1_000_000)
	candidates := []*Adaptation{
		{Type: MediaTypeText, Language: "fra",
			Representations: []Representation{{ID: "t-fra"}}},
	}

	var got []*Adaptation
	stop := e.AdaptationsChoice(MediaTypeText, candidates).Subscribe(func(a *Adaptation) {
		got = append(got, a)
	})
	defer stop()

	// text defaults to "none" and emits nil immediately
	require.Len(t, got, 1)
	require.Nil(t, got[0])

	e.SetTextTrack(&TextTrackPreference{Language: "fra"})
	require.Len(t, got, 2)
	require.NotNil(t, got[1])
	require.Equal(t, "fra", got[1].Language)

	e.SetTextTrack(nil)
	require.Len(t, got, 3)
	require.Nil(t, got[2])
}

func TestAdaptationsChoiceSingleOptionType(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{}, 1_000_000)
	candidates := []*Adaptation{videoAdaptation(), videoAdaptation()}

	var got []*Adaptation
	stop := e.AdaptationsChoice(MediaTypeVideo, candidates).Subscribe(func(a *Adaptation) {
		got = append(got, a)
	})
	defer stop()

	require.Len(t, got, 1)
	require.Same(t, candidates[0], got[0])
}

func TestPreferenceSnapshots(t *testing.T) {
	e, _, _ := newTestEngine(t, Config{
		DefaultAudioTrack: AudioTrackPreference{Language: "swe"},
	}, 1_000_000)

	require.Equal(t, AudioTrackPreference{Language: "swe"}, e.GetAudioTrack())
	require.Nil(t, e.GetTextTrack())

	e.SetAudioTrack(AudioTrackPreference{Language: "fin", AudioDescription: true})
	require.Equal(t, AudioTrackPreference{Language: "fin", AudioDescription: true}, e.GetAudioTrack())

	pref := &TextTrackPreference{Language: "swe", ClosedCaption: true}
	e.SetTextTrack(pref)
	require.Equal(t, pref, e.GetTextTrack())
}

func TestAverageBitratesExposesLiveCells(t *testing.T) {
	e, estimate, _ := newTestEngine(t, Config{}, 1_000_000)

	cells := e.AverageBitrates()
	require.Equal(t, 64_000.0, cells[MediaTypeAudio].Get())
	require.Equal(t, 1_000_000.0, cells[MediaTypeVideo].Get())

	estimate.Set(2_000_000)
	require.Equal(t, 2_000_000.0, cells[MediaTypeVideo].Get())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	source := MetricSource{
		Audio: make(MetricChannel, 1),
		Video: make(MetricChannel, 1),
	}
	e := New(source, DeviceState{}, Config{})

	e.Unsubscribe()
	e.Unsubscribe()

	// setters still mutate state after teardown
	e.SetAudioTrack(AudioTrackPreference{Language: "nor"})
	require.Equal(t, "nor", e.GetAudioTrack().Language)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	require.Equal(t, DefaultAudioLanguage, cfg.DefaultAudioTrack.Language)
	require.Nil(t, cfg.DefaultTextTrack)
	require.Equal(t, DefaultBufferSize, cfg.DefaultBufferSize)
	require.Equal(t, DefaultMarginThreshold, cfg.MarginThreshold)
	require.Equal(t, DefaultDebounceWindow, cfg.DebounceWindow)
	require.Equal(t, UnboundedBitrate, cfg.MaxAudioBitrate)
	require.Equal(t, UnboundedBitrate, cfg.MaxVideoBitrate)
	require.NotNil(t, cfg.Logger)
}
