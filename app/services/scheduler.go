package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"soofia-clockbook/app/attendance"
)

// Purger is the part of the reconciler the retention job needs.
type Purger interface {
	PurgeBefore(ctx context.Context, weekID string) (int64, error)
}

// RetentionCutoff returns the oldest week kept when retentionWeeks past weeks
// are retained before the week containing now.
func RetentionCutoff(now time.Time, retentionWeeks int) attendance.WeekWindow {
	return attendance.ShiftWeek(attendance.ComputeWeek(now), -retentionWeeks)
}

// PurgeOldWeeks deletes attendance older than the retention cutoff.
func PurgeOldWeeks(ctx context.Context, p Purger, now time.Time, retentionWeeks int) (int64, error) {
	cutoff := RetentionCutoff(now, retentionWeeks)
	return p.PurgeBefore(ctx, cutoff.WeekID)
}

// StartScheduler starts the background retention job. It returns nil when
// retention is disabled.
func StartScheduler(p Purger, schedule string, retentionWeeks int) (*cron.Cron, error) {
	if retentionWeeks <= 0 {
		log.Info("Attendance retention disabled, scheduler not started")
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		n, err := PurgeOldWeeks(ctx, p, time.Now(), retentionWeeks)
		if err != nil {
			log.WithError(err).Error("Scheduled attendance purge failed")
			return
		}
		log.WithField("deleted", n).Info("Scheduled attendance purge completed")
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.WithFields(log.Fields{"schedule": schedule, "retention_weeks": retentionWeeks}).Info("Scheduler started...")
	return c, nil
}
