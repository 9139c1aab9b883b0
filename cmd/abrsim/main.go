package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eyevinn/abrselect/internal"
)

const (
	appName = "abrsim"
	version = "0.1.0"
)

var usg = `%s simulates a playback session driven by the abrselect engine.
It loads a bitrate ladder from an HLS master playlist (or uses a built-in
ladder), replays a bandwidth trace as per-segment download metrics, and logs
every adaptation and representation decision. Runtime controls and
Prometheus metrics are served over HTTP.

Usage of %s:
`

type options struct {
	addr           string
	playlist       string
	media          string
	trace          string
	logLevel       string
	logFormat      string
	duration       int
	segDur         float64
	width          int
	margin         float64
	limitWidth     bool
	throttleHidden bool
	audioLang      string
	version        bool
}

func parseOptions(fs *flag.FlagSet, args []string) (*options, error) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, usg, appName, appName)
		fmt.Fprintf(os.Stderr, "%s [options]\n\noptions:\n", appName)
		fs.PrintDefaults()
	}

	opts := options{}
	fs.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address for metrics and runtime controls")
	fs.StringVar(&opts.playlist, "playlist", "", "Path to an HLS master playlist (built-in ladder if empty)")
	fs.StringVar(&opts.media, "media", "", "Path to a fragmented MP4 providing per-segment size variation")
	fs.StringVar(&opts.trace, "trace", "", "Path to a JSON bandwidth trace (built-in trace if empty)")
	fs.StringVar(&opts.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "logformat", "text", "Log format (text or json)")
	fs.IntVar(&opts.duration, "duration", 0, "Duration of session in seconds (0 means unlimited)")
	fs.Float64Var(&opts.segDur, "segdur", 2, "Segment duration in seconds")
	fs.IntVar(&opts.width, "width", 1920, "Viewport width in pixels")
	fs.Float64Var(&opts.margin, "margin", 0, "Safety margin on the estimate (0 uses the default)")
	fs.BoolVar(&opts.limitWidth, "limitwidth", false, "Cap video quality at the viewport's useful bitrate")
	fs.BoolVar(&opts.throttleHidden, "throttlehidden", false, "Drop video quality while the session is hidden")
	fs.StringVar(&opts.audioLang, "audiolang", "eng", "Preferred audio language")
	fs.BoolVar(&opts.version, "version", false, fmt.Sprintf("Get %s version", appName))
	err := fs.Parse(args[1:])
	return &opts, err
}

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	opts, err := parseOptions(fs, args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Printf("%s %s\n", appName, version)
		return nil
	}

	logger := internal.NewLogger(os.Stderr, opts.logLevel, opts.logFormat)
	slog.SetDefault(logger)

	adaptations, err := loadAdaptations(opts.playlist)
	if err != nil {
		return err
	}
	videos := adaptations[internal.MediaTypeVideo]
	if len(videos) == 0 {
		return fmt.Errorf("no video adaptation available")
	}

	trace, err := loadTrace(opts.trace)
	if err != nil {
		return err
	}

	var segments []internal.SegmentInfo
	if opts.media != "" {
		segments, err = loadSegments(opts.media)
		if err != nil {
			return err
		}
		logger.Info("loaded media segments", "file", opts.media, "count", len(segments))
	}

	metrics := internal.NewMetrics()
	source := internal.MetricSource{
		Audio: make(internal.MetricChannel, 16),
		Video: make(internal.MetricChannel, 16),
	}
	device := internal.DeviceState{
		Width:  internal.NewCell(opts.width),
		Hidden: internal.NewCell(false),
	}
	engine := internal.New(source, device, internal.Config{
		DefaultAudioTrack:  internal.AudioTrackPreference{Language: opts.audioLang},
		MarginThreshold:    opts.margin,
		LimitVideoWidth:    opts.limitWidth,
		ThrottleWhenHidden: opts.throttleHidden,
		Logger:             logger,
		Metrics:            metrics,
	})
	defer engine.Unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.duration)*time.Second)
		defer cancel()
	}

	stopAudioChoice := engine.AdaptationsChoice(internal.MediaTypeAudio,
		adaptations[internal.MediaTypeAudio]).Subscribe(func(a *internal.Adaptation) {
		if a == nil {
			logger.Info("audio track", "selected", "none")
			return
		}
		logger.Info("audio track", "language", a.Language, "audioDescription", a.IsAudioDescription)
	})
	defer stopAudioChoice()

	stopTextChoice := engine.AdaptationsChoice(internal.MediaTypeText,
		adaptations[internal.MediaTypeText]).Subscribe(func(a *internal.Adaptation) {
		if a == nil {
			logger.Info("text track", "selected", "none")
			return
		}
		logger.Info("text track", "language", a.Language, "closedCaption", a.IsClosedCaption)
	})
	defer stopTextChoice()

	adapter := engine.BufferAdapters(videos[0])
	stopVideoChoice := adapter.Representations.Subscribe(func(r *internal.Representation) {
		logger.Info("video representation",
			"id", r.ID,
			"bitrate", r.Bitrate,
			"width", r.Width,
			"bufferSize", adapter.BufferSize.Get())
	})
	defer stopVideoChoice()

	srv := &http.Server{Addr: opts.addr, Handler: newRouter(engine, metrics, device)}
	go func() {
		logger.Info("control server listening", "addr", opts.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	sim := &simulator{
		source:   source,
		trace:    trace,
		segments: segments,
		segDur:   time.Duration(opts.segDur * float64(time.Second)),
		logger:   logger,
	}
	go sim.run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadAdaptations(playlist string) (map[internal.MediaType][]*internal.Adaptation, error) {
	if playlist == "" {
		return builtinAdaptations(), nil
	}
	f, err := os.Open(playlist)
	if err != nil {
		return nil, fmt.Errorf("could not open playlist: %w", err)
	}
	defer f.Close()
	master, err := internal.DecodeMasterPlaylist(f)
	if err != nil {
		return nil, err
	}
	return internal.AdaptationsFromMasterPlaylist(master)
}

func loadSegments(media string) ([]internal.SegmentInfo, error) {
	f, err := os.Open(media)
	if err != nil {
		return nil, fmt.Errorf("could not open media file: %w", err)
	}
	defer f.Close()
	return internal.ReadSegmentInfo(f)
}

// builtinAdaptations is the default session content: a four-step video
// ladder, stereo audio in two languages plus one audio-description track,
// and one subtitle track.
func builtinAdaptations() map[internal.MediaType][]*internal.Adaptation {
	return map[internal.MediaType][]*internal.Adaptation{
		internal.MediaTypeVideo: {
			{Type: internal.MediaTypeVideo, Representations: []internal.Representation{
				{ID: "video_300kbps", Bitrate: 300_000, Width: 640},
				{ID: "video_750kbps", Bitrate: 750_000, Width: 1280},
				{ID: "video_1500kbps", Bitrate: 1_500_000, Width: 1920},
				{ID: "video_3000kbps", Bitrate: 3_000_000, Width: 3840},
			}},
		},
		internal.MediaTypeAudio: {
			{Type: internal.MediaTypeAudio, Language: "eng", Representations: []internal.Representation{
				{ID: "audio_eng_64kbps", Bitrate: 64_000},
				{ID: "audio_eng_128kbps", Bitrate: 128_000},
			}},
			{Type: internal.MediaTypeAudio, Language: "fra", Representations: []internal.Representation{
				{ID: "audio_fra_128kbps", Bitrate: 128_000},
			}},
			{Type: internal.MediaTypeAudio, Language: "eng", IsAudioDescription: true,
				Representations: []internal.Representation{
					{ID: "audio_eng_ad_128kbps", Bitrate: 128_000},
				}},
		},
		internal.MediaTypeText: {
			{Type: internal.MediaTypeText, Language: "swe", Representations: []internal.Representation{
				{ID: "subs_swe"},
			}},
		},
	}
}
