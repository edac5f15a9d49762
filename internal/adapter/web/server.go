package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server: HTTP API поверх Handler. Start не блокируется, Stop graceful.
// После Stop сервер повторно не запускается.
type Server struct {
	srv     *http.Server
	handler *Handler
	logger  *zap.SugaredLogger
	running atomic.Bool
	addr    atomic.Value // фактический адрес после Listen

	quit     chan struct{} // закрывается в начале Stop
	quitOnce sync.Once
	done     chan struct{} // закрывается, когда Serve вернулся
	stopErr  error
}

func NewServer(bindAddr string, h *Handler, cfg RouterConfig, logger *zap.SugaredLogger) *Server {
	if bindAddr == "" {
		bindAddr = "127.0.0.1:8080"
	}
	s := &Server{handler: h, logger: logger, quit: make(chan struct{}), done: make(chan struct{})}
	s.srv = &http.Server{
		Addr:              bindAddr,
		Handler:           NewRouter(h, cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// websocket-соединения угнаны у сервера, Shutdown их не ждёт
	s.srv.RegisterOnShutdown(h.Close)
	s.addr.Store(bindAddr)
	return s
}

// Start занимает порт синхронно (ошибка адреса видна сразу) и обслуживает в фоне.
// Отмена ctx останавливает сервер.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.addr.Store(ln.Addr().String())
	s.logger.Infow("Web API listening", "addr", s.Addr())

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("Web API stopped with error", "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop(context.WithoutCancel(ctx))
		case <-s.quit:
		}
	}()
	return nil
}

// Stop завершает сервер и возвращается только после выхода Serve.
// Повторные и конкурентные вызовы ждут того же завершения.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.quitOnce.Do(func() {
		close(s.quit)
		shutdownCtx, cancel := context.WithTimeoutCause(ctx, shutdownTimeout, errors.New("web api shutdown timeout"))
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("graceful shutdown error", "error", err)
			s.stopErr = s.srv.Close()
		}
		<-s.done
		// хук RegisterOnShutdown идёт в своей горутине; ждём подписчиков здесь
		s.handler.Close()
		s.logger.Infow("Web API stopped")
	})
	<-s.done
	return s.stopErr
}

// Addr возвращает адрес, на котором слушает сервер.
func (s *Server) Addr() string { return s.addr.Load().(string) }
