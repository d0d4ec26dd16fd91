package approval

import (
	"sync"
	"testing"
	"time"
)

func TestApproveFromPending(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "do the thing")

	p, err := m.Approve("a1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if p.State != StateApproved {
		t.Errorf("state = %s, want approved", p.State)
	}
}

func TestRejectAfterApprovedIsIgnored(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "plan")
	if _, err := m.Approve("a1"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	_, err := m.Reject("a1")
	if err != ErrNotTransitioning {
		t.Errorf("err = %v, want ErrNotTransitioning", err)
	}
	p, _ := m.Get("a1")
	if p.State != StateApproved {
		t.Errorf("state = %s, want still approved", p.State)
	}
}

func TestDiscussThenReopen(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "v1 plan")

	p, err := m.BeginDiscuss("a1", "use python 3.12")
	if err != nil {
		t.Fatalf("BeginDiscuss: %v", err)
	}
	if p.State != StateDiscussing {
		t.Fatalf("state = %s, want discussing", p.State)
	}

	p, err = m.Reopen("a1", "v2 plan", "sid-2")
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if p.State != StatePending || p.PlanText != "v2 plan" || p.SessionID != "sid-2" {
		t.Errorf("unexpected state after reopen: %+v", p)
	}
}

func TestDiscussRequiresPending(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "plan")
	m.Approve("a1")

	if _, err := m.BeginDiscuss("a1", "x"); err != ErrNotTransitioning {
		t.Errorf("err = %v, want ErrNotTransitioning", err)
	}
}

func TestConcurrentApproveRejectOnlyOneWins(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "plan")

	var wg sync.WaitGroup
	results := make(chan State, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if p, err := m.Approve("a1"); err == nil {
			results <- p.State
		}
	}()
	go func() {
		defer wg.Done()
		if p, err := m.Reject("a1"); err == nil {
			results <- p.State
		}
	}()
	wg.Wait()
	close(results)

	final, _ := m.Get("a1")
	if final.State != StateApproved && final.State != StateRejected {
		t.Fatalf("final state = %s, want approved or rejected", final.State)
	}
}

func TestSweepExpired(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "plan")

	expired := m.SweepExpired(time.Now().Add(25 * time.Hour))
	if len(expired) != 1 || expired[0] != "a1" {
		t.Errorf("expired = %v, want [a1]", expired)
	}
	p, _ := m.Get("a1")
	if p.State != StateExpired {
		t.Errorf("state = %s, want expired", p.State)
	}
}

func TestSweepExpiredIgnoresNonTransitioning(t *testing.T) {
	m := NewManager(time.Hour)
	m.Create("a1", "t1", "sid-1", "plan")
	m.Approve("a1")

	expired := m.SweepExpired(time.Now().Add(25 * time.Hour))
	if len(expired) != 0 {
		t.Errorf("expired = %v, want none (already approved)", expired)
	}
}
