package p2p

import (
	"testing"
	"time"

	"github.com/n3node/core/pkg/hashing"
)

func TestTaskSessionAddRespectsCapacity(t *testing.T) {
	s := NewTaskSession(2, 3, time.Second)
	now := time.Now()

	if _, ok := s.AddTask(TaskGetData, nil, hashing.Hash256{1}, now); !ok {
		t.Fatalf("first add should succeed")
	}
	if _, ok := s.AddTask(TaskGetData, nil, hashing.Hash256{2}, now); !ok {
		t.Fatalf("second add should succeed")
	}
	if _, ok := s.AddTask(TaskGetData, nil, hashing.Hash256{3}, now); ok {
		t.Fatalf("third add should be rejected at capacity 2")
	}
	if s.Outstanding() != 2 {
		t.Fatalf("expected 2 outstanding, got %d", s.Outstanding())
	}
}

func TestTaskSessionOnResponseResolvesTask(t *testing.T) {
	s := NewTaskSession(4, 3, time.Second)
	now := time.Now()
	inv := hashing.Hash256{7}
	s.AddTask(TaskGetBlocks, nil, inv, now)

	if !s.OnResponse(inv) {
		t.Fatalf("expected OnResponse to resolve the task")
	}
	if s.Outstanding() != 0 {
		t.Fatalf("expected 0 outstanding after resolution, got %d", s.Outstanding())
	}
	if s.OnResponse(inv) {
		t.Fatalf("resolving the same inventory hash twice should report false")
	}
}

func TestTaskSessionTickRetriesThenAbandons(t *testing.T) {
	s := NewTaskSession(4, 2, time.Millisecond)
	start := time.Now()
	s.AddTask(TaskGetHeaders, nil, hashing.Hash256{1}, start)

	retried, abandoned := s.Tick(start.Add(2 * time.Millisecond))
	if len(retried) != 1 || len(abandoned) != 0 {
		t.Fatalf("expected 1 retry, 0 abandoned; got %d/%d", len(retried), len(abandoned))
	}

	retried, abandoned = s.Tick(start.Add(4 * time.Millisecond))
	if len(retried) != 1 || len(abandoned) != 0 {
		t.Fatalf("expected 1 retry, 0 abandoned on second tick; got %d/%d", len(retried), len(abandoned))
	}

	retried, abandoned = s.Tick(start.Add(6 * time.Millisecond))
	if len(retried) != 0 || len(abandoned) != 1 {
		t.Fatalf("expected task to be abandoned after exhausting retries; got retried=%d abandoned=%d", len(retried), len(abandoned))
	}
	if s.Outstanding() != 0 {
		t.Fatalf("abandoned task should be removed from outstanding")
	}
	if len(s.Abandoned()) != 1 {
		t.Fatalf("expected 1 recorded abandonment, got %d", len(s.Abandoned()))
	}
}

func TestTaskSessionRemoveTask(t *testing.T) {
	s := NewTaskSession(4, 3, time.Second)
	now := time.Now()
	task, ok := s.AddTask(TaskGetData, nil, hashing.Hash256{9}, now)
	if !ok {
		t.Fatalf("add should succeed")
	}
	s.RemoveTask(task.ID)
	if s.Outstanding() != 0 {
		t.Fatalf("expected 0 outstanding after RemoveTask, got %d", s.Outstanding())
	}
	if s.OnResponse(hashing.Hash256{9}) {
		t.Fatalf("removed task's inventory hash should no longer resolve")
	}
}
