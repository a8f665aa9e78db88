package herald

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// scheduleDefinition accepts either a Go duration ("30m") or a five-field
// cron expression ("0 */6 * * *").
func scheduleDefinition(schedule string) (gocron.JobDefinition, error) {
	if d, err := time.ParseDuration(schedule); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("herald: rebuild interval must be positive, got %s", schedule)
		}
		return gocron.DurationJob(d), nil
	}
	return gocron.CronJob(schedule, false), nil
}

// startScheduler runs rebuilds on RebuildSchedule. An empty schedule disables it.
func (a *App) startScheduler() error {
	if a.Config.RebuildSchedule == "" {
		return nil
	}
	def, err := scheduleDefinition(a.Config.RebuildSchedule)
	if err != nil {
		return err
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("herald: create scheduler: %w", err)
	}
	_, err = s.NewJob(def,
		gocron.NewTask(a.scheduledBuild),
		gocron.WithName("rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("herald: schedule rebuild %q: %w", a.Config.RebuildSchedule, err)
	}
	s.Start()
	a.scheduler = s
	a.Logger.Info("rebuild schedule active", "schedule", a.Config.RebuildSchedule)
	return nil
}

func (a *App) scheduledBuild() {
	if !a.rebuilding.CompareAndSwap(false, true) {
		a.Logger.Info("scheduled rebuild skipped, a build is running")
		return
	}
	defer a.rebuilding.Store(false)
	a.builds.Add(1)
	defer a.builds.Done()
	a.runBuild(a.ctx, "schedule")
}
