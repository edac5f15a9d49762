package console

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client «произносит» текст в лог. Для запуска без звуковой карты и облачных ключей.
// pace имитирует длительность речи: задержка на каждое слово.
type Client struct {
	logger *zap.SugaredLogger
	pace   time.Duration
}

func New(logger *zap.SugaredLogger, pace time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{logger: logger, pace: pace}
}

func (c *Client) Speak(ctx context.Context, text string) error {
	c.logger.Infow("Announcement", "text", text)
	if c.pace <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(len(strings.Fields(text))) * c.pace)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
