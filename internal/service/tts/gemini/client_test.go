package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"TrainAnnouncer/internal/config"

	"go.uber.org/zap/zaptest"
)

type recordingPlayer struct {
	format string
	data   []byte
}

func (p *recordingPlayer) Play(_ context.Context, format string, r io.ReadCloser) error {
	defer r.Close()
	b, err := io.ReadAll(r)
	p.format, p.data = format, b
	return err
}

func TestBuildPayload(t *testing.T) {
	rp := buildPayload(config.GeminiTTSConfig{
		ModelName: " gemini-2.5-flash-tts ",
		VoiceName: "Charon",
		Prompt:    "calm",
		InputType: "unknown",
	}, "Next stop: Lund.")
	if rp.Input.Text != "Next stop: Lund." || rp.Input.Ssml != "" {
		t.Errorf("input = %+v", rp.Input)
	}
	if rp.Input.Prompt != "calm" || rp.Voice.ModelName != "gemini-2.5-flash-tts" {
		t.Errorf("prompt/model = %q/%q", rp.Input.Prompt, rp.Voice.ModelName)
	}
	if rp.AudioConfig.AudioEncoding != "MP3" {
		t.Errorf("encoding = %q", rp.AudioConfig.AudioEncoding)
	}

	if rp := buildPayload(config.GeminiTTSConfig{InputType: "SSML"}, "<speak/>"); rp.Input.Ssml != "<speak/>" {
		t.Errorf("ssml input not used: %+v", rp.Input)
	}
}

func TestSpeakDecodesAudioContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rp requestPayload
		if err := json.NewDecoder(r.Body).Decode(&rp); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if rp.Input.Text != "Welcome aboard." {
			t.Errorf("text = %q", rp.Input.Text)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer srv.Close()

	p := &recordingPlayer{}
	c := New(config.GeminiTTSConfig{Endpoint: srv.URL}, p, zaptest.NewLogger(t).Sugar())
	c.httpClient = func(context.Context) (*http.Client, error) { return srv.Client(), nil }

	if err := c.Speak(context.Background(), "Welcome aboard."); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if p.format != "mp3" || string(p.data) != "mp3-bytes" {
		t.Errorf("played %q/%q", p.format, p.data)
	}
}

func TestSpeakEmptyAudioContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"audioContent":""}`))
	}))
	defer srv.Close()

	c := New(config.GeminiTTSConfig{Endpoint: srv.URL}, &recordingPlayer{}, zaptest.NewLogger(t).Sugar())
	c.httpClient = func(context.Context) (*http.Client, error) { return srv.Client(), nil }
	if err := c.Speak(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty audioContent")
	}
	if err := c.Speak(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}
