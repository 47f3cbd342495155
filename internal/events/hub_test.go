package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRetainsLatestEvents(t *testing.T) {
	h := NewHub(2)
	h.Publish(TypeBatchStarted, map[string]int{"total": 3})
	h.Publish(TypeWorkflowGenerated, nil)
	last := h.Publish(TypeBatchCompleted, nil)

	got := h.Since(0)
	if len(got) != 2 {
		t.Fatalf("Since(0) len = %d, want 2", len(got))
	}
	if got[0].Type != TypeWorkflowGenerated || got[1].ID != last.ID {
		t.Fatalf("Since(0) = %+v, want the two newest events", got)
	}
	if string(got[0].Data) != "{}" {
		t.Fatalf("nil payload = %s, want {}", got[0].Data)
	}
	if rest := h.Since(last.ID); len(rest) != 0 {
		t.Fatalf("Since(last) = %+v, want empty", rest)
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub(0)
	ch, cancel := h.Subscribe()

	h.Publish(TypeWorkflowFailed, map[string]any{"job_id": 7})

	select {
	case ev := <-ch:
		var data struct {
			JobID int64 `json:"job_id"`
		}
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
		if ev.Type != TypeWorkflowFailed || data.JobID != 7 {
			t.Fatalf("event = %+v, want workflow.failed for job 7", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	// Publishing after cancel must not panic.
	h.Publish(TypeBatchCompleted, nil)
}
