package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"TrainAnnouncer/internal/config"
	"TrainAnnouncer/internal/service/tts/google"
)

// Небольшая утилита: печатает голоса Google TTS для языка из конфигурации.
// Путь к ключу сервисного аккаунта берётся из internal/config.
func main() {
	var language string
	cfg := config.NewConfigWithFlags(func(fs *flag.FlagSet) {
		fs.StringVar(&language, "language", "", "код языка; пусто: GOOGLE_TTS_LANGUAGE, '*': все языки")
	})

	// Установим GOOGLE_APPLICATION_CREDENTIALS из конфига, если не задано в окружении.
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" && cfg.GoogleTTS.CredentialsPath != "" {
		_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GoogleTTS.CredentialsPath)
	}

	switch language {
	case "":
		language = cfg.GoogleTTS.Language
	case "*":
		language = ""
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), 15*time.Second, errors.New("google tts voices request timeout"))
	defer cancel()

	voices, err := google.ListVoices(ctx, language)
	if err != nil {
		fmt.Println("не удалось получить список голосов Google TTS:", err)
		os.Exit(1)
	}
	if len(voices) == 0 {
		fmt.Printf("Голосов для %q не найдено\n", language)
		return
	}
	for _, v := range voices {
		mark := " "
		if v.Name == cfg.GoogleTTS.Voice {
			mark = "*"
		}
		fmt.Printf("%s %-32s %-8s %6d Hz  %s\n", mark, v.Name, v.Gender, v.SampleRate, strings.Join(v.Languages, ","))
	}
}
