package closure

import (
	"context"
	"log"
	"time"
)

// Job runs CloseDueRounds from the scheduler with a bounded run time.
type Job struct {
	Service *ClosureService
	Timeout time.Duration
}

func (j Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	summary, err := j.Service.CloseDueRounds(ctx)
	if err != nil {
		log.Printf("[Closure] run failed: %v\n", err)
		return
	}
	if len(summary.ClosedJourneys) > 0 {
		log.Printf("[Closure] checked %d jornadas, closed predictions in %d\n", summary.CheckedJourneys, len(summary.ClosedJourneys))
	}
}
