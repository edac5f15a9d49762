package speech

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type event struct {
	text   string
	status string // start | done | interrupted | failed
}

// fakeSpeaker записывает события; при block=true фраза звучит до отмены ctx или release.
type fakeSpeaker struct {
	block   bool
	release chan struct{}
	fail    map[string]error

	mu         sync.Mutex
	events     []event
	interrupts int
	started    chan string
}

func newFakeSpeaker(block bool) *fakeSpeaker {
	return &fakeSpeaker{
		block:   block,
		release: make(chan struct{}),
		fail:    map[string]error{},
		started: make(chan string, 256),
	}
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.record(text, "start")
	f.started <- text
	if err, ok := f.fail[text]; ok {
		f.record(text, "failed")
		return err
	}
	if text == "panic" {
		panic("engine exploded")
	}
	if f.block {
		select {
		case <-ctx.Done():
			f.record(text, "interrupted")
			return ctx.Err()
		case <-f.release:
		}
	} else if ctx.Err() != nil {
		f.record(text, "interrupted")
		return ctx.Err()
	}
	f.record(text, "done")
	return nil
}

func (f *fakeSpeaker) Interrupt() {
	f.mu.Lock()
	f.interrupts++
	f.mu.Unlock()
}

func (f *fakeSpeaker) record(text, status string) {
	f.mu.Lock()
	f.events = append(f.events, event{text: text, status: status})
	f.mu.Unlock()
}

func (f *fakeSpeaker) snapshot() []event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeSpeaker) finalStatus() map[string]string {
	out := map[string]string{}
	for _, e := range f.snapshot() {
		if e.status != "start" {
			out[e.text] = e.status
		}
	}
	return out
}

func waitStarted(t *testing.T, f *fakeSpeaker, want string) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != want {
			t.Fatalf("started %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q to start", want)
	}
}

func TestWorkerPreemptsInFlightSpeech(t *testing.T) {
	sp := newFakeSpeaker(true)
	w := NewWorker(sp, Options{Policy: PolicyPreempt}, zaptest.NewLogger(t).Sugar())

	if err := w.Speak("x"); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, sp, "x")
	if err := w.Speak("y"); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, sp, "y")
	close(sp.release)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	want := []event{
		{"x", "start"},
		{"x", "interrupted"},
		{"y", "start"},
		{"y", "done"},
	}
	if got := sp.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.interrupts != 2 {
		t.Errorf("Interrupt() called %d times, want 2", sp.interrupts)
	}
}

func TestWorkerBurstAttemptsEveryItemInOrder(t *testing.T) {
	sp := newFakeSpeaker(true)
	w := NewWorker(sp, Options{}, zaptest.NewLogger(t).Sugar())

	_ = w.Speak("a")
	waitStarted(t, sp, "a")
	for _, s := range []string{"b", "c", "d"} {
		_ = w.Speak(s)
	}
	for _, s := range []string{"b", "c", "d"} {
		waitStarted(t, sp, s)
	}
	close(sp.release)
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	var order []string
	for _, e := range sp.snapshot() {
		if e.status == "start" {
			order = append(order, e.text)
		}
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c", "d"}) {
		t.Errorf("start order = %v", order)
	}
	want := map[string]string{"a": "interrupted", "b": "interrupted", "c": "interrupted", "d": "done"}
	if got := sp.finalStatus(); !reflect.DeepEqual(got, want) {
		t.Errorf("final status = %v, want %v", got, want)
	}
}

func TestWorkerQueuePolicyFinishesEachItem(t *testing.T) {
	sp := newFakeSpeaker(true)
	w := NewWorker(sp, Options{Policy: PolicyQueue}, zaptest.NewLogger(t).Sugar())

	_ = w.Speak("x")
	waitStarted(t, sp, "x")
	_ = w.Speak("y")
	select {
	case got := <-sp.started:
		t.Fatalf("%q started while x was still speaking", got)
	case <-time.After(50 * time.Millisecond):
	}
	close(sp.release)
	waitStarted(t, sp, "y")
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"x": "done", "y": "done"}
	if got := sp.finalStatus(); !reflect.DeepEqual(got, want) {
		t.Errorf("final status = %v, want %v", got, want)
	}
}

func TestWorkerFIFOAcrossProducers(t *testing.T) {
	sp := newFakeSpeaker(false)
	w := NewWorker(sp, Options{Policy: PolicyQueue}, zaptest.NewLogger(t).Sugar())

	const producers, perProducer = 4, 25
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := w.Speak(fmt.Sprintf("%d-%03d", p, i)); err != nil {
					t.Errorf("Speak: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	last := map[string]string{}
	count := 0
	for _, e := range sp.snapshot() {
		if e.status != "done" {
			continue
		}
		count++
		producer := e.text[:1]
		if prev, ok := last[producer]; ok && prev > e.text {
			t.Errorf("producer %s out of order: %s after %s", producer, e.text, prev)
		}
		last[producer] = e.text
	}
	if count != producers*perProducer {
		t.Errorf("rendered %d items, want %d", count, producers*perProducer)
	}
}

func TestWorkerSurvivesSpeakerFailures(t *testing.T) {
	sp := newFakeSpeaker(false)
	sp.fail["bad"] = errors.New("device busy")

	var mu sync.Mutex
	var results []Result
	w := NewWorker(sp, Options{
		Policy: PolicyQueue,
		OnResult: func(r Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	}, zaptest.NewLogger(t).Sugar())

	for _, s := range []string{"bad", "panic", "good"} {
		if err := w.Speak(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	if got := sp.finalStatus()["good"]; got != "done" {
		t.Errorf("good = %q, want done", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err == nil || results[1].Err == nil || results[2].Err != nil {
		t.Errorf("unexpected result errors: %v / %v / %v", results[0].Err, results[1].Err, results[2].Err)
	}
}

func TestWorkerStopDrainsQueue(t *testing.T) {
	sp := newFakeSpeaker(false)
	w := NewWorker(sp, Options{Policy: PolicyQueue}, zaptest.NewLogger(t).Sugar())
	for i := 0; i < 10; i++ {
		_ = w.Speak(fmt.Sprintf("m%d", i))
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if n := len(sp.finalStatus()); n != 10 {
		t.Errorf("rendered %d items before exit, want 10", n)
	}
	select {
	case <-w.Done():
	default:
		t.Error("Done() must be closed after Stop")
	}
	if w.Pending() != 0 {
		t.Errorf("Pending() = %d after stop", w.Pending())
	}
}

func TestWorkerStopIsBounded(t *testing.T) {
	sp := newFakeSpeaker(true)
	w := NewWorker(sp, Options{Policy: PolicyQueue, StopTimeout: 50 * time.Millisecond}, zaptest.NewLogger(t).Sugar())

	_ = w.Speak("endless")
	waitStarted(t, sp, "endless")

	start := time.Now()
	if err := w.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Stop() = %v, want ErrStopTimeout", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("Stop took %v", took)
	}
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after stop timeout cancelled speech")
	}
	if err := w.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Errorf("second Stop() = %v, want same result", err)
	}
}

func TestWorkerRejectsSpeakAfterStop(t *testing.T) {
	w := NewWorker(newFakeSpeaker(false), Options{}, zaptest.NewLogger(t).Sugar())
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Speak("late"); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("Speak after Stop = %v, want ErrWorkerStopped", err)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyPreempt, false},
		{"preempt", PolicyPreempt, false},
		{"queue", PolicyQueue, false},
		{"skip", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
