package capture

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Countdown waits the given number of seconds, logging each remaining
// second and reporting it to tick when set. It gives the user time to step
// out of frame before the background is captured.
func Countdown(ctx context.Context, seconds int, logger logrus.FieldLogger, tick func(remaining int)) error {
	return countdown(ctx, seconds, time.Second, logger, tick)
}

func countdown(ctx context.Context, seconds int, step time.Duration, logger logrus.FieldLogger, tick func(int)) error {
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for remaining := seconds; remaining > 0; remaining-- {
		logger.WithField("remaining_s", remaining).Info("Capturing background soon")
		if tick != nil {
			tick(remaining)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if tick != nil {
		tick(0)
	}
	return nil
}
