package app

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// task is a one-shot callback owned by a room. Both firing and cancelling happen
// under QuizService.mu, so once cancel returns the callback can no longer run, even
// if the clock already fired and the callback is waiting on the lock.
type task struct {
	timer clockwork.Timer
	done  bool
}

func (t *task) cancel() {
	if t == nil || t.done {
		return
	}
	t.done = true
	t.timer.Stop()
}

func (t *task) pending() bool {
	return t != nil && !t.done
}

// cancelTimers drops the pending reveal and advance tasks.
func (r *Room) cancelTimers() {
	r.revealTask.cancel()
	r.advanceTask.cancel()
	r.revealTask = nil
	r.advanceTask = nil
}

// PendingTimers reports how many scheduled tasks the room still owns.
func (r *Room) PendingTimers() int {
	n := 0
	if r.revealTask.pending() {
		n++
	}
	if r.advanceTask.pending() {
		n++
	}
	return n
}

// schedule runs fn after d on the service clock, holding s.mu. Callers must hold s.mu.
func (s *QuizService) schedule(d time.Duration, fn func()) *task {
	t := &task{}
	t.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.done {
			return
		}
		t.done = true
		fn()
	})
	return t
}
