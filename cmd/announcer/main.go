package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"TrainAnnouncer/internal/adapter/chat/twitch"
	"TrainAnnouncer/internal/adapter/web"
	"TrainAnnouncer/internal/app/announcer"
	"TrainAnnouncer/internal/config"
	"TrainAnnouncer/internal/route"
	"TrainAnnouncer/internal/service/hotkey"
	"TrainAnnouncer/internal/service/notify"
	"TrainAnnouncer/internal/service/speech"
	"TrainAnnouncer/internal/service/tts"
	"TrainAnnouncer/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.NewConfig()

	// создаём регистратор zap, в режиме дебага человекочитаемый
	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()

	code := 0
	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("Announcer failed", "error", err)
		code = 1
	}
	//сброс буфера логгера
	if err := logger.Sync(); err != nil && code == 0 {
		sugar.Debugw("Failed to sync logger", "error", err)
	}
	os.Exit(code)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"TTSService", cfg.TTSService,
		"SpeechPolicy", cfg.Speech.Policy,
	)

	metrics := telemetry.New()

	synth, ply, err := tts.New(cfg, logger.Named("tts"))
	if err != nil {
		return err
	}
	if cfg.Speech.ChimeEnabled {
		chime := notify.NewSoundNotifier(logger, cfg.Speech.ChimePath, ply)
		logger.Infow("Chime enabled", "path", chime.Path())
		synth = tts.WithChime(synth, chime, logger)
	}

	policy, err := speech.ParsePolicy(cfg.Speech.Policy)
	if err != nil {
		return err
	}
	worker := speech.NewWorker(synth, speech.Options{
		Policy:      policy,
		StopTimeout: cfg.Speech.StopTimeout,
		OnEnqueue:   metrics.ObserveEnqueue,
		OnResult:    metrics.ObserveSpeech,
	}, logger.Named("speech"))
	// воркер останавливается последним: после хоткеев, чата и веба
	defer func() {
		if err := worker.Stop(); err != nil {
			logger.Warnw("Speech worker stop", "error", err)
		}
	}()

	ann := announcer.New(cfg.Messages, worker, announcer.Options{
		OnAnnouncement: metrics.ObserveAnnouncement,
	}, logger.Named("announcer"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ann.Run(gctx) })

	if cfg.RoutePath != "" {
		if err := loadRoute(gctx, ann, cfg.RoutePath); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
	} else {
		logger.Infow("No route file given; load one via the web API", "flag", "-route")
	}

	binder, closeHotkeys := setupHotkeys(cfg.Hotkeys, ann, logger.Named("hotkey"))
	defer closeHotkeys()

	var srv *web.Server
	if cfg.WebServer.Enabled {
		rc := web.RouterConfig{
			APIKey:             cfg.WebServer.APIKey,
			CorsAllowedOrigins: cfg.WebServer.CorsAllowedOrigins,
			Metrics:            metrics,
		}
		h := web.NewHandler(ann, binder, metrics, cfg.WebServer.CorsAllowedOrigins, logger.Named("web"))
		srv = web.NewServer(cfg.WebServer.BindAddr, h, rc, logger.Named("web"))
		if err := srv.Start(gctx); err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("web api: %w", err)
		}
	}

	if cfg.Twitch.Enabled {
		tc := twitch.Config{
			Username:     cfg.Twitch.Username,
			OAuth:        cfg.Twitch.OAuthToken,
			Channel:      cfg.Twitch.Channel,
			AllowedUsers: cfg.Twitch.AllowedUsers,
		}
		g.Go(func() error {
			// обрыв чата не должен останавливать объявления
			if err := twitch.Run(gctx, logger.Named("twitch"), tc, ann, metrics.ObserveChatCommand); err != nil {
				logger.Warnw("Twitch chat stopped", "error", err)
			}
			return nil
		})
	}

	logger.Infow("Announcer ready", "hotkeys", cfg.Hotkeys, "web", cfg.WebServer.Enabled, "twitch", cfg.Twitch.Enabled)
	<-gctx.Done()
	logger.Infow("Shutting down...")

	// порядок: хоткеи → веб → цикл объявлений → воркер (defer)
	closeHotkeys()
	if srv != nil {
		if err := srv.Stop(context.Background()); err != nil {
			logger.Warnw("Web API stop", "error", err)
		}
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadRoute(ctx context.Context, ann *announcer.Announcer, path string) error {
	r, err := route.ReadFile(path)
	if err != nil {
		return fmt.Errorf("route %s: %w", path, err)
	}
	if _, err := ann.LoadRoute(ctx, r); err != nil {
		return fmt.Errorf("route %s: %w", path, err)
	}
	return nil
}

// setupHotkeys регистрирует хоткеи, если платформа их поддерживает.
// Без хоткеев приложение продолжает работать через веб и чат.
func setupHotkeys(cfg config.HotkeysConfig, ann *announcer.Announcer, logger *zap.SugaredLogger) (web.HotkeyBinder, func()) {
	bridge, err := hotkey.New(logger)
	if err != nil {
		if errors.Is(err, hotkey.ErrUnsupported) {
			logger.Warnw("Global hotkeys unavailable", "error", err)
		} else {
			logger.Errorw("Global hotkeys init failed", "error", err)
		}
		return nil, func() {}
	}

	hk := announcer.NewHotkeys(bridge, ann)
	for name, combo := range map[string]string{
		announcer.HotkeyNext:   cfg.Next,
		announcer.HotkeyRepeat: cfg.Repeat,
	} {
		if err := hk.Bind(name, combo); err != nil {
			logger.Warnw("Hotkey not registered", "action", name, "combination", combo, "error", err)
			continue
		}
		if combo != "" {
			logger.Infow("Hotkey registered", "action", name, "combination", combo)
		}
	}

	closed := false
	return hk, func() {
		if closed {
			return
		}
		closed = true
		bridge.Clear()
		if err := bridge.Close(); err != nil {
			logger.Warnw("Hotkey bridge close", "error", err)
		}
	}
}
