package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingService struct {
	name     string
	startErr error
	mu       *sync.Mutex
	stopped  *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *recordingService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.stopped = append(*s.stopped, s.name)
	return nil
}

func TestRunnerStopsServicesInReverseOrder(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	failing := errors.New("listen failed")
	runner := NewRunner(
		&recordingService{name: "http", mu: &mu, stopped: &stopped},
		&recordingService{name: "worker", startErr: failing, mu: &mu, stopped: &stopped},
	)
	closed := false
	runner.OnShutdown(func() error {
		closed = true
		return nil
	})

	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, failing) {
		t.Fatalf("want start error, got %v", err)
	}
	if len(stopped) != 2 || stopped[0] != "worker" || stopped[1] != "http" {
		t.Fatalf("unexpected stop order: %v", stopped)
	}
	if !closed {
		t.Fatalf("shutdown closer should run")
	}
}

func TestRunnerCanceledContextIsCleanExit(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	runner := NewRunner(&recordingService{name: "http", mu: &mu, stopped: &stopped})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("canceled run should return nil, got %v", err)
	}
	if len(stopped) != 1 {
		t.Fatalf("service should be stopped once, got %v", stopped)
	}
}

func TestBuildRunnerRejectsUnknownMode(t *testing.T) {
	if _, _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
	if ValidMode("cron") {
		t.Fatalf("cron is not a supported mode")
	}
}
