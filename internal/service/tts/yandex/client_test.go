package yandex

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"TrainAnnouncer/internal/config"
)

type recordingPlayer struct {
	format string
	data   string
}

func (p *recordingPlayer) Play(_ context.Context, format string, r io.ReadCloser) error {
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.format, p.data = format, string(b)
	return nil
}

func TestSpeakSendsFormAndPlaysBody(t *testing.T) {
	var gotAuth string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotForm = map[string]string{
			"text":    r.PostForm.Get("text"),
			"voice":   r.PostForm.Get("voice"),
			"format":  r.PostForm.Get("format"),
			"emotion": r.PostForm.Get("emotion"),
		}
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	p := &recordingPlayer{}
	c := New(config.YandexTTSConfig{APIKey: "k", Voice: "john", Format: "MP3", Speed: "1.0", Emotion: "Neutral"}, p)
	c.endpoint = srv.URL

	if err := c.Speak(context.Background(), "Next stop: Bergen."); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if gotAuth != "Api-Key k" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	want := map[string]string{"text": "Next stop: Bergen.", "voice": "john", "format": "mp3", "emotion": "neutral"}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, gotForm[k], v)
		}
	}
	if p.format != "mp3" || p.data != "ID3-audio" {
		t.Errorf("played %q/%q", p.format, p.data)
	}
}

func TestSpeakErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &recordingPlayer{}
	c := New(config.YandexTTSConfig{APIKey: "k", Format: "mp3"}, p)
	c.endpoint = srv.URL

	err := c.Speak(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status=429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Speak() error = %v", err)
	}
	if p.format != "" {
		t.Error("nothing must be played on error")
	}
}

func TestSpeakRequiresAPIKey(t *testing.T) {
	c := New(config.YandexTTSConfig{}, &recordingPlayer{})
	if err := c.Speak(context.Background(), "x"); err == nil {
		t.Fatal("expected error without API key")
	}
}
