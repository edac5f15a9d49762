package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"TrainAnnouncer/internal/config"
	"TrainAnnouncer/internal/service/announcement"
	"TrainAnnouncer/internal/service/notify"
	"TrainAnnouncer/internal/service/speech"
	"TrainAnnouncer/internal/service/tts"

	"go.uber.org/zap"
)

// Небольшая утилита: произносит одну фразу (-text) или заготовку (-preset)
// через настроенный TTS и выходит. Удобно для проверки голоса и громкости.
func main() {
	var text, presetID string
	cfg := config.NewConfigWithFlags(func(fs *flag.FlagSet) {
		fs.StringVar(&text, "text", "", "текст для озвучки")
		fs.StringVar(&presetID, "preset", "", "id заготовки (напр. delay, doors)")
	})

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Debugw("Failed to sync logger", "error", err)
		}
	}()

	phrase, err := resolvePhrase(text, presetID)
	if err != nil {
		fmt.Println(err)
		listPresets()
		os.Exit(2)
	}

	synth, ply, err := tts.New(cfg, sugar)
	if err != nil {
		sugar.Fatalw("TTS init failed", "error", err)
	}
	if cfg.Speech.ChimeEnabled {
		synth = tts.WithChime(synth, notify.NewSoundNotifier(sugar, cfg.Speech.ChimePath, ply), sugar)
	}

	// очередь, а не preempt: фраза должна дозвучать до Stop
	var failed error
	worker := speech.NewWorker(synth, speech.Options{
		Policy:      speech.PolicyQueue,
		StopTimeout: sayStopTimeout(cfg),
		OnResult: func(res speech.Result) {
			if res.Err != nil {
				failed = res.Err
			}
		},
	}, sugar)

	if err := worker.Speak(phrase); err != nil {
		sugar.Fatalw("Speak failed", "error", err)
	}
	if err := worker.Stop(); err != nil {
		sugar.Errorw("Speech did not finish", "error", err)
		return
	}
	if failed != nil {
		sugar.Errorw("Speech failed", "error", failed)
		return
	}
	sugar.Infow("Done", "text", phrase)
}

// sayStopTimeout: Stop ждёт всю фразу целиком, а не только дозвучивание.
func sayStopTimeout(cfg *config.Config) time.Duration {
	return max(cfg.Speech.StopTimeout, time.Minute)
}

func resolvePhrase(text, presetID string) (string, error) {
	switch {
	case strings.TrimSpace(text) != "" && presetID != "":
		return "", fmt.Errorf("укажите только один из флагов: -text или -preset")
	case strings.TrimSpace(text) != "":
		return text, nil
	case presetID != "":
		p, ok := announcement.FindPreset(announcement.DefaultPresets(), presetID)
		if !ok {
			return "", fmt.Errorf("%w: %q", announcement.ErrUnknownPreset, presetID)
		}
		return p.Text, nil
	default:
		return "", fmt.Errorf("нужен -text или -preset")
	}
}

func listPresets() {
	fmt.Println("Доступные заготовки:")
	for _, p := range announcement.DefaultPresets() {
		fmt.Printf("  %-12s %s\n", p.ID, p.Text)
	}
}
