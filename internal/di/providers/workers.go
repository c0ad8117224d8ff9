package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

// sessionCleanupInterval is how often expired sessions are pruned.
const sessionCleanupInterval = time.Hour

// SessionCleanupJob runs periodic session cleanup.
type SessionCleanupJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &SessionCleanupJob{cancel: cancel, done: make(chan struct{})}

	prune := func(phase string) {
		count, err := sessionService.DeleteExpiredSessions(ctx)
		if err != nil {
			log.Warn("Session cleanup failed", "phase", phase, "error", err)
			return
		}
		if count > 0 {
			log.Info("Session cleanup completed", "phase", phase, "deleted", count)
		}
	}

	go func() {
		defer close(job.done)

		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()

		prune("startup")

		for {
			select {
			case <-ticker.C:
				prune("periodic")
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session cleanup job started", "interval", sessionCleanupInterval)

	return job, nil
}
