package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"invisible-cloak/internal/capture"
	"invisible-cloak/internal/config"
	"invisible-cloak/internal/core"
	"invisible-cloak/internal/io"
)

// prepareBackground reuses the cached background file when it matches the
// camera, otherwise counts down and captures a fresh one.
func prepareBackground(ctx context.Context, cfg config.Config, camera *capture.Camera, logger *logrus.Logger) (gocv.Mat, error) {
	loader := io.NewImageLoader(logger)
	file := cfg.Background.File

	if file != "" {
		if _, err := os.Stat(file); err == nil {
			background, err := loader.LoadImage(file)
			if err == nil && matchesCamera(background, camera) {
				logger.WithField("path", file).Info("Using cached background")
				return background, nil
			}
			background.Close()
			logger.WithError(err).WithField("path", file).Warn("Cached background unusable, capturing a new one")
		}
	}

	if err := capture.Countdown(ctx, cfg.Background.Countdown, logger, nil); err != nil {
		return gocv.NewMat(), err
	}

	opts := cfg.BackgroundOptions()
	opts.Logger = logger
	background, err := core.CaptureBackground(ctx, camera, opts)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("capture background: %w", err)
	}

	if file != "" {
		if err := loader.SaveImage(background, file); err != nil {
			logger.WithError(err).Warn("Failed to cache background")
		}
	}
	return background, nil
}

func matchesCamera(background gocv.Mat, camera *capture.Camera) bool {
	if core.ValidateFrame(background) != nil {
		return false
	}
	size := camera.Size()
	if size.X == 0 || size.Y == 0 {
		return true
	}
	return background.Cols() == size.X && background.Rows() == size.Y
}
