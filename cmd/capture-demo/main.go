package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	cameracapture "github.com/e7canasta/orion-care-sensor/modules/camera-capture"
	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/devices"
	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/gstsession"
)

// Version information
const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	device := flag.String("device", "", "Device to open first (default: first enumerated)")
	width := flag.Int("width", 1280, "Capture width in pixels")
	height := flag.Int("height", 720, "Capture height in pixels")
	fps := flag.Int("fps", 30, "Capture frame rate")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("capture-demo %s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg := cameracapture.DefaultConfig()
	if *configPath != "" {
		loaded, err := cameracapture.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.DeviceName = *device
		case "width":
			cfg.Format.Width = *width
		case "height":
			cfg.Format.Height = *height
		case "fps":
			cfg.Format.FrameRate = *fps
		}
	})
	cfg.Logger = logger

	var enumerator cameracapture.Enumerator
	if len(cfg.Devices) > 0 {
		static := make([]devices.Device, len(cfg.Devices))
		for i, d := range cfg.Devices {
			static[i] = devices.Device{Name: d.Name, FrontFacing: d.FrontFacing}
		}
		enumerator = devices.NewStatic(static...)
	} else {
		linux, err := devices.NewLinux()
		if err != nil {
			log.Fatalf("Failed to scan devices: %v", err)
		}
		enumerator = linux
	}

	factory, err := gstsession.NewFactory(gstsession.Options{
		Source:       cfg.GStreamer.Source,
		StartTimeout: cfg.GStreamer.StartTimeout,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("Failed to create session factory: %v", err)
	}

	observer := &logObserver{}
	capturer, err := cameracapture.NewCapturer(cfg, cameracapture.Dependencies{
		Enumerator: enumerator,
		Factory:    factory,
		Observer:   observer,
		Events:     observer,
	})
	if err != nil {
		log.Fatalf("Failed to create capturer: %v", err)
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║          Camera Capture Demo - Orion 2.0 Module           ║\n")
	fmt.Printf("║                      Version %s                       ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Devices:       %v\n", enumerator.DeviceNames())
	fmt.Printf("  Device:        %s\n", capturer.DeviceName())
	fmt.Printf("  Format:        %s\n", cfg.Format)
	fmt.Printf("  Source:        %s\n", cfg.GStreamer.Source)
	fmt.Printf("\n")
	fmt.Printf("Signals:\n")
	fmt.Printf("  SIGUSR1        switch to the next device\n")
	fmt.Printf("  SIGUSR2        attach/detach the FPS consumer\n")
	fmt.Printf("  Ctrl+C         stop\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	if err := capturer.Start(cfg.Format); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	ticker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer ticker.Stop()

	var consumer *fpsConsumer
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				slog.Info("switching device", "from", capturer.DeviceName())
				capturer.SwitchDevice(func(frontFacing bool, err error) {
					if err != nil {
						slog.Warn("switch failed", "error", err)
						return
					}
					slog.Info("switch complete", "device", capturer.DeviceName(), "front_facing", frontFacing)
				})

			case syscall.SIGUSR2:
				if consumer == nil {
					consumer = &fpsConsumer{started: time.Now()}
					capturer.AttachConsumer(consumer, func(err error) {
						if err != nil {
							slog.Warn("consumer attach failed", "error", err)
						} else {
							slog.Info("consumer attached")
						}
					})
				} else {
					measured := consumer
					consumer = nil
					capturer.DetachConsumer(func(err error) {
						if err != nil {
							slog.Warn("consumer detach failed", "error", err)
							return
						}
						measured.report()
					})
				}

			default:
				fmt.Printf("\nShutting down...\n")
				capturer.Dispose()
				printStats(capturer.Stats(), observer)
				return
			}

		case <-ticker.C:
			printStats(capturer.Stats(), observer)
		}
	}
}

func printStats(s cameracapture.Stats, observer *logObserver) {
	fmt.Printf("\n")
	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ Capturer Statistics\n")
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Device:             %s (%s)\n", s.DeviceName, s.Phase)
	fmt.Printf("│ Switch / Consumer:  %s / %s\n", s.SwitchPhase, s.AttachPhase)
	fmt.Printf("│ Sessions Opened:    %6d\n", s.SessionsOpened)
	fmt.Printf("│ Open Attempts:      %6d (retries %d, failures %d, timeouts %d)\n",
		s.OpenAttempts, s.OpenRetries, s.OpenFailures, s.OpenTimeouts)
	fmt.Printf("│ Switches:           %6d\n", s.Switches)
	fmt.Printf("│ Consumer Updates:   %6d\n", s.ConsumerUpdates)
	fmt.Printf("│ Frames Delivered:   %6d (observer saw %d)\n", s.FramesDelivered, observer.frames.Load())
	fmt.Printf("│ Stale Events:       %6d\n", s.StaleEvents)
	if s.FPS != nil {
		fmt.Printf("│ FPS Mean:           %6.2f fps (stddev %.2f, stable %v)\n", s.FPS.FPSMean, s.FPS.FPSStdDev, s.FPS.IsStable)
	}
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
}

// logObserver logs capturer callbacks.
type logObserver struct {
	frames atomic.Uint64
}

func (o *logObserver) OnCapturerStarted(success bool) {
	slog.Info("capturer started", "success", success)
}
func (o *logObserver) OnCapturerStopped() { slog.Info("capturer stopped") }
func (o *logObserver) OnFrameCaptured(frame cameracapture.Frame) {
	o.frames.Add(1)
	slog.Debug("frame", "seq", frame.Seq, "size_bytes", len(frame.Data), "trace_id", frame.TraceID)
}
func (o *logObserver) OnCameraError(message string) { slog.Error("camera error", "error", message) }
func (o *logObserver) OnCameraDisconnected()        { slog.Warn("camera disconnected") }
func (o *logObserver) OnCameraFreezed(message string) {
	slog.Warn("camera froze", "error", message)
}
func (o *logObserver) OnCameraOpening(name string) { slog.Info("camera opening", "device", name) }
func (o *logObserver) OnFirstFrameAvailable()      { slog.Info("first frame available") }
func (o *logObserver) OnCameraClosed()             { slog.Info("camera closed") }

// fpsConsumer records arrival times of the frames it is fed.
type fpsConsumer struct {
	started time.Time

	mu    sync.Mutex
	times []time.Time
}

func (c *fpsConsumer) WriteFrame(cameracapture.Frame) error {
	c.mu.Lock()
	c.times = append(c.times, time.Now())
	c.mu.Unlock()
	return nil
}

func (c *fpsConsumer) report() {
	c.mu.Lock()
	times := append([]time.Time(nil), c.times...)
	c.mu.Unlock()

	stats := cameracapture.CalculateFPSStats(times, time.Since(c.started))
	slog.Info("consumer detached",
		"frames", stats.FramesReceived,
		"duration", stats.Duration.Round(time.Millisecond),
		"fps_mean", stats.FPSMean,
		"fps_stddev", stats.FPSStdDev,
		"jitter_max_s", stats.JitterMax,
		"stable", stats.IsStable,
	)
}
