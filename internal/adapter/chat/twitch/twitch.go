package twitch

import (
	"context"
	"strings"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username     string
	OAuth        string // может быть с/без префикса oauth:
	Channel      string // без #, регистр не важен
	AllowedUsers []string
}

// Dispatcher: асинхронные операции Announcer. Вызовы не должны блокироваться:
// они происходят в горутине IRC-клиента.
type Dispatcher interface {
	NextAsync(source string)
	RepeatAsync(source string)
	ResetAsync(source string)
	PresetAsync(id, source string)
}

// Observer: опциональный счётчик команд (telemetry.Metrics.ObserveChatCommand).
type Observer func(command, result string)

const source = "twitch"

// Run подключается к чату и превращает команды в вызовы Dispatcher.
// Базовые реконнекты обеспечиваются клиентом; функция завершается по отмене ctx.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, d Dispatcher, obs Observer) error {
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	token := strings.TrimSpace(cfg.OAuth)
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if username == "" || token == "" || channel == "" {
		logger.Warnw("Twitch chat not configured: missing env", "username", username != "", "token", token != "", "channel", channel != "")
		return nil
	}
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(username, token)
	cmds := newCommander(d, NewGate(cfg.AllowedUsers, dedupWindow), obs, logger)

	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", username, "join", channel)
		client.Join(channel)
	})
	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		cmds.handle(msg.User.Name, msg.User.Badges, msg.Message)
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}

// commander: разбор, фильтр прав и диспетчеризация одной строки чата.
type commander struct {
	d      Dispatcher
	gate   *Gate
	obs    Observer
	logger *zap.SugaredLogger
}

func newCommander(d Dispatcher, gate *Gate, obs Observer, logger *zap.SugaredLogger) *commander {
	if obs == nil {
		obs = func(string, string) {}
	}
	return &commander{d: d, gate: gate, obs: obs, logger: logger}
}

func (c *commander) handle(user string, badges map[string]int, text string) {
	cmd, ok := ParseCommand(text)
	if !ok {
		return
	}
	if ok, reason := c.gate.Allow(user, badges, cmd); !ok {
		c.obs(cmd.Name, reason)
		c.logger.Debugw("Chat command ignored", "user", user, "command", cmd.Name, "reason", reason)
		return
	}
	c.logger.Infow("Chat command", "user", user, "command", cmd.Name, "arg", cmd.Arg)
	c.obs(cmd.Name, "accepted")

	switch cmd.Name {
	case CommandNext:
		c.d.NextAsync(source)
	case CommandRepeat:
		c.d.RepeatAsync(source)
	case CommandReset:
		c.d.ResetAsync(source)
	case CommandPreset:
		c.d.PresetAsync(cmd.Arg, source)
	}
}
