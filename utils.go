package factextract

import (
	"errors"
	"log/slog"
)

// retryValidation calls fn up to maxAttempts times, repeating only while it
// fails with a validation error. Retries are immediate and identical. The last
// error is returned unchanged once attempts run out; any other error is
// returned at once.
func retryValidation(maxAttempts int, fn func(attempt int) error, log *slog.Logger) error {
	maxAttempts = max(1, maxAttempts)

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Debug("Attempt succeeded", "attempt", attempt)
			}
			return nil
		}
		if !errors.Is(err, ErrValidation) {
			return err
		}
		log.Warn("Attempt failed with validation error",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if attempt < maxAttempts {
			log.Info("Retrying", "next_attempt", attempt+1)
		}
	}
	return err
}
