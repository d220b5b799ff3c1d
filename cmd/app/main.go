// Invisible Cloak: replaces a colored cloth in a live camera feed with the
// background behind it.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"invisible-cloak/internal/capture"
	"invisible-cloak/internal/config"
	"invisible-cloak/internal/control"
	"invisible-cloak/internal/core"
	"invisible-cloak/internal/gui"
	"invisible-cloak/internal/metrics"
	"invisible-cloak/internal/recording"
	"invisible-cloak/internal/session"
)

const (
	AppName    = "Invisible Cloak"
	AppID      = "com.example.invisible-cloak"
	AppVersion = "1.0.0"
)

type options struct {
	configPath string
	debug      bool
	device     string
	httpAddr   string
	headless   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug mode with verbose logging")
	flag.StringVar(&opts.device, "device", "", "Camera index, video file or capture URL (overrides camera.device)")
	flag.StringVar(&opts.httpAddr, "http", "", "Serve the HTTP control API on this address, e.g. :8080 (overrides http.addr)")
	flag.BoolVar(&opts.headless, "headless", false, "Run without a window; stop with Ctrl+C")
	flag.Parse()

	logger := initLogger(opts.debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": opts.debug,
		"headless":   opts.headless,
	}).Info("Starting Invisible Cloak")

	if err := run(opts, logger); err != nil {
		logger.WithError(err).Error("Invisible Cloak stopped with an error")
		os.Exit(1)
	}

	logger.Info("Application shutting down gracefully")
}

func run(opts options, logger *logrus.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.device != "" {
		cfg.Camera.Device = opts.device
	}
	if opts.httpAddr != "" {
		cfg.HTTP.Addr = opts.httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	camera, err := capture.Open(cfg.CaptureOptions(), logger)
	if err != nil {
		return err
	}
	defer camera.Close()

	background, err := prepareBackground(ctx, cfg, camera, logger)
	if err != nil {
		if errors.Is(err, core.ErrCaptureExhausted) {
			return fmt.Errorf("no usable frames from %s: %w", camera.Device(), err)
		}
		return err
	}

	state, err := cfg.InitialState()
	if err != nil {
		background.Close()
		return err
	}

	tracker := metrics.NewTracker()
	pipeline, err := core.NewCloakPipeline(background, state, core.PipelineOptions{
		Mask:    cfg.MaskOptions(),
		Metrics: tracker,
		Logger:  logger,
	})
	if err != nil {
		background.Close()
		return err
	}
	defer pipeline.Close()

	recorder := recording.NewRecorder(cfg.RecordingOptions(), logger)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.WithError(err).Warn("Failed to finish recording")
		}
	}()

	sessionOpts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}
	sess := session.New(camera, pipeline, recorder, tracker, sessionOpts, logger)
	defer sess.Close()

	if cfg.HTTP.Addr != "" {
		server := control.NewServer(cfg.HTTP.Addr, sess, logger)
		server.StartAsync()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("HTTP control server shutdown failed")
			}
		}()
	}

	if opts.headless {
		return runHeadless(ctx, sess, logger)
	}
	return runWindowed(ctx, sess, logger)
}

func runHeadless(ctx context.Context, sess *session.Session, logger *logrus.Logger) error {
	logger.Info("Running headless, press Ctrl+C to stop")

	err := sess.Run(ctx)
	if errors.Is(err, session.ErrSourceExhausted) {
		logger.WithError(err).Info("Frame source finished")
		return nil
	}
	return err
}

func runWindowed(ctx context.Context, sess *session.Session, logger *logrus.Logger) error {
	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.MediaVideoIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	mainApp := gui.NewApplication(myApp, sess, logger)
	mainApp.SetCloseCallback(cancel)
	sess.AddSink(mainApp.Sink())

	done := make(chan error, 1)
	go func() {
		err := sess.Run(runCtx)
		if errors.Is(err, session.ErrSourceExhausted) {
			logger.WithError(err).Info("Frame source finished")
			err = nil
		}
		done <- err
		mainApp.Quit()
	}()

	mainApp.ShowAndRun(runCtx)
	cancel()
	return <-done
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
