package p2p

import (
	"sync"
	"time"

	"github.com/n3node/core/pkg/hashing"
)

// TaskKind identifies what a Task is asking the peer for (§4.5.2).
type TaskKind int

const (
	TaskGetHeaders TaskKind = iota
	TaskGetBlocks
	TaskGetData
)

// Task is one outstanding inventory request to a peer.
type Task struct {
	ID       uint64
	Kind     TaskKind
	Payload  any
	Deadline time.Time
	attempts int
}

// TaskSession is the per-peer scheduler of §4.5.2: a bounded set of
// outstanding tasks, tick-driven expiry, and bounded retry. Grounded on
// the teacher's per-peer bookkeeping in core/network.go (Peer tracked
// under n.peerLock), generalized into the inventory-fetch scheduler the
// specification names as its own component.
type TaskSession struct {
	mu              sync.Mutex
	maxConcurrent   int
	retryAttempts   int
	taskTimeout     time.Duration
	nextID          uint64
	outstanding     map[uint64]*Task
	byInventoryHash map[hashing.Hash256]uint64
	abandoned       []*Task
}

// NewTaskSession constructs a session bounded at maxConcurrent outstanding
// tasks, retrying an overdue task up to retryAttempts times before it is
// abandoned, with taskTimeout as the deadline horizon for new tasks.
func NewTaskSession(maxConcurrent, retryAttempts int, taskTimeout time.Duration) *TaskSession {
	return &TaskSession{
		maxConcurrent:   maxConcurrent,
		retryAttempts:   retryAttempts,
		taskTimeout:     taskTimeout,
		outstanding:     make(map[uint64]*Task),
		byInventoryHash: make(map[hashing.Hash256]uint64),
	}
}

// AddTask enqueues a request for an inventory item, rejecting it if the
// session is already at capacity.
func (s *TaskSession) AddTask(kind TaskKind, payload any, inv hashing.Hash256, now time.Time) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outstanding) >= s.maxConcurrent {
		return nil, false
	}
	s.nextID++
	t := &Task{ID: s.nextID, Kind: kind, Payload: payload, Deadline: now.Add(s.taskTimeout)}
	s.outstanding[t.ID] = t
	s.byInventoryHash[inv] = t.ID
	return t, true
}

// RemoveTask cancels an outstanding task by ID, e.g. when a caller decides
// it no longer cares about the response.
func (s *TaskSession) RemoveTask(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outstanding, id)
	for inv, taskID := range s.byInventoryHash {
		if taskID == id {
			delete(s.byInventoryHash, inv)
		}
	}
}

// OnResponse marks the task awaiting inv as completed and removes it.
// Reports false if no task is currently waiting on that hash.
func (s *TaskSession) OnResponse(inv hashing.Hash256) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byInventoryHash[inv]
	if !ok {
		return false
	}
	delete(s.byInventoryHash, inv)
	delete(s.outstanding, id)
	return true
}

// Tick expires overdue tasks: those within retryAttempts get a fresh
// deadline and an incremented attempt counter (the caller is expected to
// re-send the request); those that exhaust retryAttempts are moved to
// Abandoned and dropped from the outstanding set.
func (s *TaskSession) Tick(now time.Time) (retried []*Task, abandoned []*Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.outstanding {
		if now.Before(t.Deadline) {
			continue
		}
		if t.attempts >= s.retryAttempts {
			delete(s.outstanding, id)
			for inv, taskID := range s.byInventoryHash {
				if taskID == id {
					delete(s.byInventoryHash, inv)
				}
			}
			s.abandoned = append(s.abandoned, t)
			abandoned = append(abandoned, t)
			continue
		}
		t.attempts++
		t.Deadline = now.Add(s.taskTimeout)
		retried = append(retried, t)
	}
	return retried, abandoned
}

// Outstanding returns the number of tasks currently in flight.
func (s *TaskSession) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// HasCapacity reports whether a new task can be added without exceeding
// maxConcurrent.
func (s *TaskSession) HasCapacity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding) < s.maxConcurrent
}

// Abandoned returns every task that exhausted its retries, for the
// enclosing peer manager to use when deprioritizing the peer.
func (s *TaskSession) Abandoned() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, len(s.abandoned))
	copy(out, s.abandoned)
	return out
}
