package google

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"TrainAnnouncer/internal/config"
	"TrainAnnouncer/internal/service/tts/player"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
)

// Client реализует синтез речи через Google Cloud Text-to-Speech и воспроизводит результат.
type Client struct {
	cfg    config.GoogleTTSConfig
	player player.Player
	logger *zap.SugaredLogger
}

func New(cfg config.GoogleTTSConfig, p player.Player, logger *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, player: p, logger: logger}
}

// Speak выполняет запрос к Google TTS и воспроизводит MP3.
func (c *Client) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("google tts: empty input text")
	}
	req := buildRequest(c.cfg, text)

	// Создаём клиента SDK
	ttsClient, err := gctts.NewClient(ctx)
	if err != nil {
		return err
	}
	defer ttsClient.Close()

	started := time.Now()
	resp, err := ttsClient.SynthesizeSpeech(ctx, req)
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Infow("Google TTS synthesize completed", "took", time.Since(started).String(), "bytes", len(resp.GetAudioContent()))
	}

	r := io.NopCloser(bytes.NewReader(resp.GetAudioContent()))
	return c.player.Play(ctx, "mp3", r)
}

// buildRequest собирает запрос синтеза. Тип входа: явный из конфига или авто по <speak>.
func buildRequest(gc config.GoogleTTSConfig, text string) *ttspb.SynthesizeSpeechRequest {
	var input *ttspb.SynthesisInput
	if isSSML(gc.InputType, text) {
		input = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Ssml{Ssml: text}}
	} else {
		input = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}}
	}

	voice := &ttspb.VoiceSelectionParams{
		LanguageCode: gc.Language,
		Name:         gc.Voice, // поддержка Standard/Wavenet голосов
	}

	// Только MP3
	audio := &ttspb.AudioConfig{
		AudioEncoding: ttspb.AudioEncoding_MP3,
		SpeakingRate:  gc.SpeakingRate,
		Pitch:         gc.Pitch,
		VolumeGainDb:  gc.VolumeGainDb,
	}
	if ep := strings.TrimSpace(gc.EffectsProfileID); ep != "" {
		audio.EffectsProfileId = []string{ep}
	}
	return &ttspb.SynthesizeSpeechRequest{Input: input, Voice: voice, AudioConfig: audio}
}

func isSSML(inputType, text string) bool {
	switch strings.ToLower(strings.TrimSpace(inputType)) {
	case "ssml":
		return true
	case "text":
		return false
	default:
		return strings.HasPrefix(strings.TrimSpace(text), "<speak")
	}
}

// Voice: голос из каталога Google TTS.
type Voice struct {
	Name       string
	Languages  []string
	Gender     string
	SampleRate int32
}

// ListVoices возвращает доступные голоса для языка (пусто: все), отсортированные по имени.
func ListVoices(ctx context.Context, language string) ([]Voice, error) {
	ttsClient, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	defer ttsClient.Close()

	resp, err := ttsClient.ListVoices(ctx, &ttspb.ListVoicesRequest{LanguageCode: language})
	if err != nil {
		return nil, err
	}
	out := make([]Voice, 0, len(resp.GetVoices()))
	for _, v := range resp.GetVoices() {
		out = append(out, Voice{
			Name:       v.GetName(),
			Languages:  v.GetLanguageCodes(),
			Gender:     v.GetSsmlGender().String(),
			SampleRate: v.GetNaturalSampleRateHertz(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
