package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sstent/garmin-token/internal/garmin"
)

// checkActivities fetches one page of activities to confirm the session
// works. Nothing here affects the exit code.
func (a *App) checkActivities(ctx context.Context) {
	start := time.Now()
	defer func() {
		a.log.WithField("took", time.Since(start)).Debug("activity check finished")
	}()

	activities, err := a.client.GetActivities(ctx, 0, a.cfg.CheckLimit)
	if err != nil {
		fmt.Fprintf(a.errOut, "\nNote: Could not test activity retrieval: %v\n", err)
		fmt.Fprintln(a.errOut, "   The session token should still work, but you may need to refresh it periodically.")
		return
	}

	if len(activities) > 0 {
		a.info("\nTest: Found %d recent activity/activities", len(activities))
	}
	for i, act := range activities {
		a.log.Debugf("[%d/%d] activity %d %q %s", i+1, len(activities), act.ActivityID, act.ActivityName, act.StartTimeLocal)
	}

	if a.recorder != nil {
		a.record(activities)
	}
}

func (a *App) record(activities []garmin.Activity) {
	known := 0
	for _, act := range activities {
		exists, err := a.recorder.ActivityExists(act.ActivityID)
		if err != nil {
			a.log.WithError(err).Warn("failed to look up recorded activity")
			return
		}
		if exists {
			known++
		}
	}

	if _, err := a.recorder.SaveActivities(activities); err != nil {
		a.log.WithError(err).Warn("failed to record activities")
		return
	}
	a.info("Recorded %d new, %d already recorded", len(activities)-known, known)
}
