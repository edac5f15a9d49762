package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// eventStream рассылает снимки состояния по websocket.
type eventStream struct {
	h        *Handler
	upgrader websocket.Upgrader

	mu       sync.Mutex
	closed   bool
	shutdown chan struct{}
	active   sync.WaitGroup // открытые подписки
}

func newEventStream(h *Handler, allowedOrigins []string) *eventStream {
	return &eventStream{
		h: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		shutdown: make(chan struct{}),
	}
}

// originChecker: без списка источников принимаем любой, как и CORS.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (s *eventStream) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		respondError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	s.active.Add(1)
	s.mu.Unlock()
	defer s.active.Done()

	logger := s.h.logger
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.Warnw("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.h.ctl.Subscribe()
	defer unsubscribe()

	if m := s.h.metrics; m != nil {
		m.EventSubscribers.Inc()
		defer m.EventSubscribers.Dec()
	}
	logger.Infow("Websocket subscriber connected", "remote", r.RemoteAddr)
	defer logger.Infow("Websocket subscriber disconnected", "remote", r.RemoteAddr)

	// начальный снимок, дальше: только изменения
	st, err := s.h.ctl.State(r.Context())
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), time.Now().Add(writeWait))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(st); err != nil {
		return
	}

	// читатель нужен для pong и обнаружения закрытия со стороны клиента
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				s.closeConn(conn, "announcer stopped")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				logger.Debugw("Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-s.shutdown:
			s.closeConn(conn, "server shutting down")
			return
		case <-gone:
			return
		}
	}
}

func (s *eventStream) closeConn(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// close рассылает закрытие и ждёт, пока все подписки отпишутся.
func (s *eventStream) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.shutdown)
	}
	s.mu.Unlock()
	s.active.Wait()
}
