package queue

import (
	"encoding/json"
	"testing"

	"github.com/lingxi-works/fincore/internal/config"
)

func TestNewSalarySyncTaskPayload(t *testing.T) {
	task, err := NewSalarySyncTask(SalarySyncPayload{UserID: 7, Month: "2024-03", ActorID: 1})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskSalarySync {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload SalarySyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.UserID != 7 || payload.Month != "2024-03" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("disabled client should report not enabled")
	}
	if err := client.EnqueueSalarySync(SalarySyncPayload{UserID: 1, Month: "2024-03"}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	var nilClient *Client
	if err := nilClient.EnqueueOverdueRefresh(OverdueRefreshPayload{}); err != nil {
		t.Fatalf("nil client enqueue should be a no-op: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
