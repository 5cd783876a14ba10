package housekeeping

import (
	"context"
	"time"

	"github.com/rojosync/rojo/pkg/logging"
)

// housekeepingInterval is the interval at which HousekeepRegularly re-runs
// Housekeep.
const housekeepingInterval = 24 * time.Hour

// HousekeepRegularly runs Housekeep once immediately, then again at
// housekeepingInterval, until ctx is cancelled. Intended for a long-lived
// watch/serve session (spec §5); a one-shot build or syncback invocation
// calls Housekeep directly instead.
func HousekeepRegularly(ctx context.Context, logger *logging.Logger) {
	logger.Println("performing initial housekeeping")
	Housekeep(logger)

	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Println("performing regular housekeeping")
			Housekeep(logger)
		}
	}
}
