package action

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"git-actions/internal/model"
	"git-actions/pkg/log"
)

// Scheduler owns the background action tasks spawned by the dispatcher:
// one task per matched rule, actions sequential inside the task. It exists
// so shutdown can drain in-flight actions within a bounded window.
type Scheduler struct {
	exec   *Executor
	l      log.Logger
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates the scheduler. The base context is cancelled when
// the drain window expires at shutdown.
func NewScheduler(exec *Executor, l log.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	return &Scheduler{
		exec:   exec,
		l:      l,
		group:  group,
		ctx:    gctx,
		cancel: cancel,
	}
}

// Dispatch schedules one matched rule's actions on a background task. The
// event is shared read-only; deliveryID tags the task's log lines.
func (s *Scheduler) Dispatch(deliveryID string, ev *model.Event, ruleName string, actions []Action) {
	s.group.Go(func() error {
		ctx := log.WithDeliveryID(s.ctx, deliveryID)
		s.exec.RunRule(ctx, ev, ruleName, actions)
		return nil
	})
}

// Drain waits up to timeout for in-flight action tasks, then cancels the
// survivors. Cancelled shell actions receive SIGTERM and, after the grace
// window, SIGKILL.
func (s *Scheduler) Drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(timeout):
		s.l.Warnf(context.Background(), "drain window %s expired, cancelling remaining action tasks", timeout)
		s.cancel()
		<-done
	}
}
