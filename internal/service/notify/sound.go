package notify

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	ttsplayer "TrainAnnouncer/internal/service/tts/player"

	"go.uber.org/zap"
)

const defaultChime = "sound/chime.mp3"

// SoundNotifier проигрывает короткий сигнал перед объявлением.
type SoundNotifier struct {
	logger *zap.SugaredLogger
	path   string
	ply    ttsplayer.Player
}

// NewSoundNotifier создаёт нотификатор. Пустой путь: sound/chime.mp3
// (сначала ищем рядом с бинарём, затем от рабочей директории).
func NewSoundNotifier(logger *zap.SugaredLogger, path string, ply ttsplayer.Player) *SoundNotifier {
	if strings.TrimSpace(path) == "" {
		path = resolve(defaultChime)
	}
	if ply == nil {
		ply = ttsplayer.New()
	}
	return &SoundNotifier{logger: logger, path: path, ply: ply}
}

func resolve(def string) string {
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), filepath.FromSlash(def))
		if _, statErr := os.Stat(cand); statErr == nil {
			return cand
		}
	}
	return filepath.FromSlash(def)
}

// Path: файл сигнала.
func (n *SoundNotifier) Path() string { return n.path }

// Play проигрывает сигнал. Ошибки логируются и возвращаются,
// чтобы вызывающий мог принять решение (например, проигнорировать).
func (n *SoundNotifier) Play(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}

	f, err := os.Open(n.path)
	if err != nil {
		if n.logger != nil {
			n.logger.Warnw("Не удалось открыть звуковой файл сигнала", "path", n.path, "error", err)
		}
		return err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(n.path), "."))
	if ext == "" {
		ext = "mp3" // по умолчанию
	}

	// Play закрывает файл сам по окончании декодирования
	if err := n.ply.Play(ctx, ext, f); err != nil {
		if n.logger != nil && ctx.Err() == nil {
			n.logger.Warnw("Не удалось воспроизвести сигнал", "path", n.path, "error", err)
		}
		return err
	}
	return nil
}
