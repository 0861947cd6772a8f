package loader

import (
	"log/slog"
	"time"

	"github.com/starford/cmsloader/internal/source"
)

// run is the remote gate for a single LoadCollection call. It paces remote
// attempts and trips to local-only mode on a rate limit, or after threshold
// consecutive failures while no remote attempt has succeeded yet.
type run struct {
	sleep        func(time.Duration)
	successDelay time.Duration
	failureDelay time.Duration
	threshold    int
	logger       *slog.Logger

	attempts    int
	successes   int
	consecutive int
	lastOK      bool
	tripped     bool
}

var _ source.Gate = (*run)(nil)

// Allow implements source.Gate. It sleeps before every remote attempt but
// the first.
func (r *run) Allow() bool {
	if r.tripped {
		return false
	}
	if r.attempts > 0 {
		d := r.failureDelay
		if r.lastOK {
			d = r.successDelay
		}
		if d > 0 {
			r.sleep(d)
		}
	}
	return true
}

func (r *run) record(o source.Outcome) {
	r.attempts++
	switch o {
	case source.Found:
		r.successes++
		r.consecutive = 0
		r.lastOK = true
	case source.RateLimited:
		r.lastOK = false
		r.trip("rate limited")
	default:
		r.consecutive++
		r.lastOK = false
		if r.successes == 0 && r.consecutive >= r.threshold {
			r.trip("consecutive remote failures")
		}
	}
}

func (r *run) trip(reason string) {
	if r.tripped {
		return
	}
	r.tripped = true
	r.logger.Warn("loader: remote disabled for this load",
		slog.String("reason", reason),
		slog.Int("remote_attempts", r.attempts))
}
