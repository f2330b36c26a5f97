package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"clipwatch/application/health"
	"clipwatch/application/monitor"
	appnotif "clipwatch/application/notification"
	"clipwatch/application/registry"
	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
	"clipwatch/domain/snippet"
	"clipwatch/domain/video"
	"clipwatch/infrastructure/amqp"
	"clipwatch/infrastructure/config"
	"clipwatch/infrastructure/ffmpeg"
	"clipwatch/infrastructure/hls"
	"clipwatch/infrastructure/imagehash"
	"clipwatch/infrastructure/logging"
	"clipwatch/infrastructure/mqtt"
	"clipwatch/infrastructure/opencv"
	"clipwatch/infrastructure/server"
	"clipwatch/infrastructure/sqlite"
	"clipwatch/infrastructure/webhook"
	"clipwatch/infrastructure/websocket"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// drainTimeout bounds how long queued notifications may take to deliver on shutdown
const drainTimeout = 5 * time.Second

type watchFlags struct {
	source           string
	clips            []string
	matchThreshold   int
	timeWindow       float64
	imageMinDuration float64
	cooldown         float64
	hashMethod       string
	notifyURL        string
	useAMQP          bool
	healthInterval   int
	display          bool
	seek             string
	sampleFPS        float64
	backend          string
	framesDir        string
	listen           string
	storePath        string
	mqttBroker       string
}

var watchOpts watchFlags

var watchCmd = &cobra.Command{
	Use:   "watch [clip...]",
	Short: "Watch a video file or stream for registered snippets",
	Long: `Watch a video file or live stream and report every occurrence of the
registered snippets. A snippet is a short video, a directory of keyframe
images or a single reference image.

Settings are read from the config file, then CLIPWATCH_* environment
variables, then flags. Extra positional arguments are added to --clips.

Examples:
  clipwatch watch --source show.mp4 --clips intro.mp4
  clipwatch watch --source rtmp://live.example.com/app/stream --clips intro.mp4,logo.png --notify_url http://hooks.local/detections
  clipwatch watch --source https://cdn.example.com/live/index.m3u8 --clips keyframes/ --use_amqp`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	registerWatchFlags(watchCmd.Flags(), &watchOpts)
}

func registerWatchFlags(f *pflag.FlagSet, o *watchFlags) {
	d := config.Default()

	f.StringVar(&o.source, "source", "", "video file or stream URL (file, RTMP, RTSP, HLS/M3U8)")
	f.StringSliceVar(&o.clips, "clips", nil, "snippet videos, image files or keyframe directories")
	f.IntVar(&o.matchThreshold, "match_threshold", d.Matching.MatchThreshold, "max Hamming distance counted as a match")
	f.Float64Var(&o.timeWindow, "time_window", d.Matching.TimeWindow, "max seconds between consecutive keyframe matches")
	f.Float64Var(&o.imageMinDuration, "image_min_duration", d.Matching.ImageMinDuration, "min seconds a single image must match continuously")
	f.Float64Var(&o.cooldown, "detection_cooldown", d.DetectionCooldown, "min seconds between repeat detections of a snippet")
	f.StringVar(&o.hashMethod, "hash_method", d.Matching.HashMethod, "hash algorithm: phash, average, marr or radial")
	f.StringVar(&o.notifyURL, "notify_url", "", "HTTP endpoint receiving detection events")
	f.BoolVar(&o.useAMQP, "use_amqp", false, "publish detection events to RabbitMQ")
	f.IntVar(&o.healthInterval, "health_check_interval", d.Health.Interval, "seconds between health messages, 0 disables")
	f.BoolVar(&o.display, "display", false, "show a live preview window (requires -tags=detection)")
	f.StringVar(&o.seek, "seek", "", "start offset for file sources (HH:MM:SS or seconds)")
	f.Float64Var(&o.sampleFPS, "sample_fps", d.Stream.SampleFPS, "frames per second sampled from the source")
	f.StringVar(&o.backend, "backend", d.Stream.Backend, "frame decoder: ffmpeg or opencv")
	f.StringVar(&o.framesDir, "frames_dir", "", "directory for extracted keyframes (default: next to each snippet)")
	f.StringVar(&o.listen, "listen", "", "address of the status server, e.g. :8080")
	f.StringVar(&o.storePath, "store", "", "sqlite file recording detection history")
	f.StringVar(&o.mqttBroker, "mqtt_broker", "", "MQTT broker host:port receiving detection events")
}

// applyWatchFlags copies explicitly set flags and positional clips onto cfg
func applyWatchFlags(flags *pflag.FlagSet, opts watchFlags, args []string, c *config.Config) {
	set := flags.Changed

	if set("source") {
		c.Source = opts.source
	}
	if set("clips") {
		c.Clips = append([]string(nil), opts.clips...)
	}
	c.Clips = append(c.Clips, args...)

	if set("match_threshold") {
		c.Matching.MatchThreshold = opts.matchThreshold
	}
	if set("time_window") {
		c.Matching.TimeWindow = opts.timeWindow
	}
	if set("image_min_duration") {
		c.Matching.ImageMinDuration = opts.imageMinDuration
	}
	if set("detection_cooldown") {
		c.DetectionCooldown = opts.cooldown
	}
	if set("hash_method") {
		c.Matching.HashMethod = opts.hashMethod
	}
	if set("notify_url") {
		c.Notify.URL = opts.notifyURL
	}
	if set("use_amqp") {
		c.Notify.UseAMQP = opts.useAMQP
	}
	if set("health_check_interval") {
		c.Health.Interval = opts.healthInterval
	}
	if set("display") {
		c.Display = opts.display
	}
	if set("seek") {
		c.Stream.Seek = opts.seek
	}
	if set("sample_fps") {
		c.Stream.SampleFPS = opts.sampleFPS
	}
	if set("backend") {
		c.Stream.Backend = opts.backend
	}
	if set("frames_dir") {
		c.Matching.FramesDir = opts.framesDir
	}
	if set("listen") {
		c.Health.Listen = opts.listen
	}
	if set("store") {
		c.Store.Path = opts.storePath
	}
	if set("mqtt_broker") {
		c.Notify.MQTT.Broker = opts.mqttBroker
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	c := GetConfig()
	applyWatchFlags(cmd.Flags(), watchOpts, args, c)
	if err := config.Validate(c); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildWatchDependencies(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()

	return RunWatchWithDependencies(ctx, c, deps, cmd.OutOrStdout())
}

// WatchDependencies are the infrastructure adapters used by the watch pipeline
type WatchDependencies struct {
	Opener    video.SourceOpener
	Extractor video.KeyframeExtractor
	Sinks     []notification.Sink
	History   server.History
	Hub       *websocket.Hub
	Preview   monitor.Preview
	Clock     monitor.ProgramClock
}

// buildWatchDependencies wires the production adapters selected by the configuration
func buildWatchDependencies(ctx context.Context, c *config.Config) (WatchDependencies, func(), error) {
	log := logging.Named("watch")
	var deps WatchDependencies
	var closers []func() error
	cleanup := func() {
		for _, fn := range closers {
			_ = fn()
		}
	}

	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithExtractorFFmpegPath(c.Stream.FFmpegPath),
		ffmpeg.WithExtractorProber(ffmpeg.NewProber(ffmpeg.WithFFprobePath(c.Stream.FFprobePath))),
	)
	deps.Extractor = extractor

	switch c.Stream.Backend {
	case "opencv":
		o, err := opencv.NewOpener(opencv.CaptureConfig{SampleFPS: c.Stream.SampleFPS, Width: c.Stream.FrameWidth, Height: c.Stream.FrameHeight})
		if err != nil {
			return deps, cleanup, config.Errorf("stream.backend opencv: %v", err)
		}
		deps.Opener = o
	default:
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := extractor.VerifyInstalled(verifyCtx); err != nil {
			return deps, cleanup, fmt.Errorf("ffmpeg verification failed: %w", err)
		}
		deps.Opener = ffmpeg.NewOpener(ffmpeg.SourceConfig{
			FFmpegPath: c.Stream.FFmpegPath,
			SampleFPS:  c.Stream.SampleFPS,
			Width:      c.Stream.FrameWidth,
			Height:     c.Stream.FrameHeight,
		})
	}

	if c.Display {
		p, err := opencv.NewPreview("clipwatch")
		if err != nil {
			return deps, cleanup, config.Errorf("display: %v", err)
		}
		deps.Preview = p
	}

	if video.IsHLS(c.Source) {
		deps.Clock = hls.NewInspector()
	}

	if c.Notify.URL != "" {
		deps.Sinks = append(deps.Sinks, webhook.NewSink(c.Notify.URL, webhook.WithTimeout(c.Notify.Timeout)))
	}

	if c.Notify.UseAMQP {
		s, err := amqp.Dial(amqp.Config{
			URL:        c.Notify.AMQP.URL,
			Exchange:   c.Notify.AMQP.Exchange,
			RoutingKey: c.Notify.AMQP.RoutingKey,
			Queue:      c.Notify.AMQP.Queue,
		})
		if err != nil {
			log.Error().Err(err).Msg("amqp sink disabled")
		} else {
			deps.Sinks = append(deps.Sinks, s)
		}
	}

	if c.Notify.MQTT.Broker != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		s, err := mqtt.Connect(connectCtx, mqtt.Config{
			Broker:   c.Notify.MQTT.Broker,
			Topic:    c.Notify.MQTT.Topic,
			ClientID: c.Notify.MQTT.ClientID,
			QoS:      c.Notify.MQTT.QoS,
		})
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("mqtt sink disabled")
		} else {
			deps.Sinks = append(deps.Sinks, s)
		}
	}

	if c.Store.Path != "" {
		store, err := sqlite.Open(c.Store.Path)
		if err != nil {
			return deps, cleanup, fmt.Errorf("failed to open detection history: %w", err)
		}
		deps.Sinks = append(deps.Sinks, store)
		deps.History = store
	}

	if c.Health.Listen != "" {
		deps.Hub = websocket.NewHub()
		deps.Sinks = append(deps.Sinks, deps.Hub)
	}

	if deps.Preview != nil {
		closers = append(closers, deps.Preview.Close)
	}

	return deps, cleanup, nil
}

// RunWatchWithDependencies builds the snippet registry and runs the pipeline until the source ends or ctx is cancelled
func RunWatchWithDependencies(ctx context.Context, c *config.Config, deps WatchDependencies, out io.Writer) error {
	log := logging.Named("watch")
	// the heartbeat and the detection lines come from different goroutines
	out = &syncWriter{w: out}

	method, err := snippet.ParseMethod(c.Matching.HashMethod)
	if err != nil {
		return config.Errorf("hash_method: %v", err)
	}
	hasher, err := imagehash.New(method)
	if err != nil {
		if errors.Is(err, imagehash.ErrUnavailable) || errors.Is(err, snippet.ErrUnknownHashMethod) {
			return config.Errorf("hash_method: %v", err)
		}
		return err
	}

	var start float64
	if c.Stream.Seek != "" {
		start, err = video.ParseTimestamp(c.Stream.Seek)
		if err != nil {
			return config.Errorf("stream.seek: %v", err)
		}
		if video.IsLive(c.Source) {
			log.Warn().Str("seek", c.Stream.Seek).Msg("seek is ignored for live sources")
		}
	}

	reg := registry.NewService(hasher, deps.Extractor,
		registry.WithFramesRoot(c.Matching.FramesDir),
		registry.WithImageMinDuration(c.Matching.ImageMinDuration),
	)
	snippets, err := reg.BuildAll(ctx, c.Clips)
	if err != nil {
		return err
	}

	engine, err := matching.NewEngine(matching.Config{
		MatchThreshold: c.Matching.MatchThreshold,
		TimeWindow:     c.Matching.TimeWindow,
	}, hasher, snippets)
	if err != nil {
		return config.Errorf("%v", err)
	}

	dispatcher := appnotif.NewDispatcher(notification.NewCooldown(c.DetectionCooldown), deps.Sinks,
		appnotif.WithRetries(c.Notify.Retries),
		appnotif.WithQueueSize(c.Notify.QueueSize),
	)

	healthMon := health.NewMonitor(c.Source, time.Duration(c.Health.Interval)*time.Second, out)

	opts := []monitor.Option{monitor.WithRecorder(healthMon)}
	if deps.Preview != nil {
		opts = append(opts, monitor.WithPreview(deps.Preview))
	}
	if deps.Clock != nil {
		opts = append(opts, monitor.WithProgramClock(deps.Clock))
	}
	pipeline := monitor.NewService(monitor.Config{
		Source:        c.Source,
		Start:         start,
		SampleFPS:     c.Stream.SampleFPS,
		MaxRetries:    c.Stream.MaxRetries,
		RetryDelay:    c.Stream.RetryDelay,
		MaxRetryDelay: c.Stream.MaxRetryDelay,
	}, deps.Opener, hasher, engine, dispatcher, out, opts...)

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	go healthMon.Run(bgCtx)
	if deps.Hub != nil {
		go deps.Hub.Run(bgCtx)
	}
	if c.Health.Listen != "" {
		routes := server.Deps{
			Status:  func() any { return statusReport{Status: healthMon.Status(), Sinks: dispatcher.Stats()} },
			History: deps.History,
		}
		if deps.Hub != nil {
			routes.Feed = deps.Hub
		}
		srv := server.New(c.Health.Listen, routes)
		go func() {
			if err := srv.Run(bgCtx); err != nil {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	log.Info().
		Str("source", c.Source).
		Int("snippets", len(snippets)).
		Int("sinks", len(deps.Sinks)).
		Str("hash_method", method.String()).
		Msg("watching")

	runErr := pipeline.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		log.Warn().Err(err).Msg("notification shutdown incomplete")
	}

	if runErr != nil {
		return runErr
	}
	log.Info().Uint64("frames", healthMon.Status().FramesProcessed).Msg("processing finished")
	return nil
}

// statusReport is served on /healthz
type statusReport struct {
	health.Status
	Sinks []appnotif.SinkStats `json:"sinks"`
}

// syncWriter serializes writes to an underlying writer
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
