package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TrainAnnouncer/internal/config"
	"TrainAnnouncer/internal/service/tts/console"
	"TrainAnnouncer/internal/service/tts/gemini"
	"TrainAnnouncer/internal/service/tts/google"
	"TrainAnnouncer/internal/service/tts/player"
	"TrainAnnouncer/internal/service/tts/yandex"

	"go.uber.org/zap"
)

// Synthesizer абстракция TTS. Метод воспроизводит речь, блокируется до её конца
// и возвращается сразу после отмены ctx. Контент наружу не отдаётся.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Chime: сигнал перед объявлением.
type Chime interface {
	Play(ctx context.Context) error
}

type interrupter interface {
	Interrupt()
}

// engine связывает провайдера с плеером, чтобы воркер мог оборвать звучащее аудио.
type engine struct {
	Synthesizer
	player *player.Default
}

func (e *engine) Interrupt() {
	if e.player != nil {
		e.player.Interrupt()
	}
}

// consolePace: имитация длительности речи в консольном режиме.
const consolePace = 250 * time.Millisecond

// New выбирает провайдера по cfg.TTSService и возвращает его вместе с плеером,
// который пригодится для сигнала перед объявлением.
func New(cfg *config.Config, logger *zap.SugaredLogger) (Synthesizer, *player.Default, error) {
	// Для Yandex учитываем внешнюю громкость, для Google/Gemini отдаём на откуп VolumeGainDb
	service := strings.ToLower(strings.TrimSpace(cfg.TTSService))
	var p *player.Default
	if service == "yandex" {
		p = player.NewWithVolume(player.VolumeFromPercent(cfg.YandexTTS.Volume))
	} else {
		p = player.New()
	}

	var synth Synthesizer
	switch service {
	case "yandex":
		synth = yandex.New(cfg.YandexTTS, p)
	case "gemini":
		synth = gemini.New(cfg.GeminiTTS, p, logger)
	case "google", "":
		service = "google"
		synth = google.New(cfg.GoogleTTS, p, logger)
	case "console":
		logger.Infow("TTS selected", "service", service)
		return console.New(logger, consolePace), p, nil
	default:
		return nil, nil, fmt.Errorf("tts: unknown service %q", cfg.TTSService)
	}
	logger.Infow("TTS selected", "service", service)
	return &engine{Synthesizer: synth, player: p}, p, nil
}

// WithChime проигрывает сигнал перед каждой фразой. Сбой сигнала не мешает речи,
// отмена ctx во время сигнала: мешает.
func WithChime(s Synthesizer, chime Chime, logger *zap.SugaredLogger) Synthesizer {
	return &chimed{next: s, chime: chime, logger: logger}
}

type chimed struct {
	next   Synthesizer
	chime  Chime
	logger *zap.SugaredLogger
}

func (c *chimed) Speak(ctx context.Context, text string) error {
	if err := c.chime.Play(ctx); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		c.logger.Debugw("Chime skipped", "error", err)
	}
	return c.next.Speak(ctx, text)
}

func (c *chimed) Interrupt() {
	if in, ok := c.next.(interrupter); ok {
		in.Interrupt()
	}
}
