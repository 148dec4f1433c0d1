package reminders

import (
	"context"
	"log"
	"time"
)

// Job runs one dispatcher cycle per scheduler tick.
type Job struct {
	Service *DispatcherService
	Timeout time.Duration
}

func (j Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	report, err := j.Service.RunCycle(ctx)
	if err != nil {
		log.Printf("[Dispatcher] cycle failed: %v\n", err)
		return
	}
	if report.Due > 0 || report.Expired > 0 {
		log.Printf("[Dispatcher] cycle: %+v\n", *report)
	}
}
