// internal/game/timers.go
package game

import (
	"time"

	"github.com/google/uuid"
)

const nextRoundTaskKey = "next-round"

func removalTaskKey(playerID uuid.UUID) string {
	return "removal:" + playerID.String()
}

// scheduledTask is a handle to a pending timer owned by the table.
type scheduledTask struct {
	timer *time.Timer
}

// schedule runs fn under the table lock after d, replacing any task with the same key.
// A task that was cancelled or replaced before it fires does nothing.
// Assumes lock is held.
func (t *Table) schedule(key string, d time.Duration, fn func()) {
	t.cancelTask(key)
	task := &scheduledTask{}
	t.tasks[key] = task
	task.timer = time.AfterFunc(d, func() {
		t.Mu.Lock()
		defer t.Mu.Unlock()
		if t.tasks[key] != task {
			return
		}
		delete(t.tasks, key)
		fn()
	})
}

// cancelTask invalidates the handle stored under key. Assumes lock is held.
func (t *Table) cancelTask(key string) {
	if task, ok := t.tasks[key]; ok {
		task.timer.Stop()
		delete(t.tasks, key)
	}
}

// cancelAllTasks invalidates every scheduled task. Assumes lock is held.
func (t *Table) cancelAllTasks() {
	for key := range t.tasks {
		t.cancelTask(key)
	}
}

func (t *Table) hasTask(key string) bool {
	_, ok := t.tasks[key]
	return ok
}
