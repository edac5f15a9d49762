package web

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestServerStartStop(t *testing.T) {
	f := newFixture(t, nil, "")
	s := NewServer("127.0.0.1:0", f.handler, RouterConfig{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start() must be a no-op, got %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if _, err := http.Get("http://" + s.Addr() + "/health"); err == nil {
		t.Error("server still answers after Stop")
	}
}

func TestServerStartBusyAddress(t *testing.T) {
	f := newFixture(t, nil, "")
	logger := zaptest.NewLogger(t).Sugar()
	first := NewServer("127.0.0.1:0", f.handler, RouterConfig{}, logger)
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer first.Stop(context.Background())

	second := NewServer(first.Addr(), f.handler, RouterConfig{}, logger)
	if err := second.Start(context.Background()); err == nil {
		_ = second.Stop(context.Background())
		t.Fatal("expected error for busy address")
	}
}

func TestServerStopWaitsForServe(t *testing.T) {
	f := newFixture(t, nil, "")
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewServer("127.0.0.1:0", f.handler, RouterConfig{}, zap.New(core).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("Web API listening").Len() != 1 {
		t.Error("listening must be logged before Start returns")
	}

	// остановка через ctx и явный Stop сходятся в одно завершение
	cancel()
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-s.done:
	default:
		t.Fatal("Serve goroutine still running after Stop")
	}
	if logs.FilterMessage("Web API stopped").Len() != 1 {
		t.Errorf("stopped logged %d times, want 1", logs.FilterMessage("Web API stopped").Len())
	}
}
