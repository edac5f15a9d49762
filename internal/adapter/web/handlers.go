package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	"TrainAnnouncer/internal/app/announcer"
	"TrainAnnouncer/internal/route"
	"TrainAnnouncer/internal/service/announcement"
	"TrainAnnouncer/internal/service/history"
	"TrainAnnouncer/internal/service/hotkey"
	"TrainAnnouncer/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MaxRouteSize: предельный размер загружаемого файла маршрута.
const MaxRouteSize = 1 << 20

// Controller: операции над объявлениями (announcer.Announcer).
type Controller interface {
	LoadRoute(ctx context.Context, r route.Route) (announcement.State, error)
	Next(ctx context.Context) (announcement.Announcement, announcement.State, error)
	Repeat(ctx context.Context) (string, error)
	Reset(ctx context.Context) (announcement.State, error)
	State(ctx context.Context) (announcement.State, error)
	Presets() []announcement.Preset
	SpeakPreset(ctx context.Context, id string) (announcement.Preset, error)
	History() []history.Entry
	Subscribe() (<-chan announcement.State, func())
}

// HotkeyBinder: управление глобальными хоткеями (announcer.Hotkeys).
type HotkeyBinder interface {
	Bind(name, combination string) error
	Bindings() map[string]string
}

type Handler struct {
	ctl     Controller
	hotkeys HotkeyBinder
	metrics *telemetry.Metrics
	logger  *zap.SugaredLogger
	events  *eventStream
}

// NewHandler создаёт обработчики. hotkeys и metrics могут быть nil.
func NewHandler(ctl Controller, hotkeys HotkeyBinder, metrics *telemetry.Metrics, allowedOrigins []string, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h := &Handler{ctl: ctl, hotkeys: hotkeys, metrics: metrics, logger: logger}
	h.events = newEventStream(h, allowedOrigins)
	return h
}

type nextResponse struct {
	Message string             `json:"message"`
	Kind    announcement.Kind  `json:"kind"`
	Station string             `json:"station,omitempty"`
	State   announcement.State `json:"state"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type hotkeysRequest struct {
	Next   *string `json:"next"`
	Repeat *string `json:"repeat"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctl.State(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) UploadRoute(w http.ResponseWriter, r *http.Request) {
	// запас сверх MaxRouteSize на заголовки multipart
	r.Body = http.MaxBytesReader(w, r.Body, MaxRouteSize+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Route file exceeds 1 MiB")
			return
		}
		respondError(w, http.StatusBadRequest, `Multipart field "file" is required`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxRouteSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read route file")
		return
	}
	if len(data) > MaxRouteSize {
		respondError(w, http.StatusRequestEntityTooLarge, "Route file exceeds 1 MiB")
		return
	}

	rt, err := route.Parse(data, header.Filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := h.ctl.LoadRoute(r.Context(), rt)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	ann, st, err := h.ctl.Next(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nextResponse{Message: ann.Text, Kind: ann.Kind, Station: ann.Station, State: st})
}

func (h *Handler) Repeat(w http.ResponseWriter, r *http.Request) {
	text, err := h.ctl.Repeat(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: text})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctl.Reset(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctl.Presets())
}

func (h *Handler) SpeakPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.ctl.SpeakPreset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: p.Text})
}

// History: последние произнесённые фразы, от старых к новым.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctl.History())
}

func (h *Handler) GetHotkeys(w http.ResponseWriter, r *http.Request) {
	if h.hotkeys == nil {
		respondError(w, http.StatusNotImplemented, "Global hotkeys are unavailable on this platform")
		return
	}
	respondJSON(w, http.StatusOK, h.hotkeys.Bindings())
}

func (h *Handler) PutHotkeys(w http.ResponseWriter, r *http.Request) {
	if h.hotkeys == nil {
		respondError(w, http.StatusNotImplemented, "Global hotkeys are unavailable on this platform")
		return
	}
	var req hotkeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	changes := []struct {
		name  string
		combo *string
	}{
		{announcer.HotkeyNext, req.Next},
		{announcer.HotkeyRepeat, req.Repeat},
	}
	// сначала проверяем все сочетания, чтобы не применить запрос наполовину
	for _, c := range changes {
		if c.combo == nil || strings.TrimSpace(*c.combo) == "" {
			continue
		}
		if _, err := hotkey.ParseCombination(*c.combo); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	// платформа может отказать на втором сочетании: тогда откатываем первое
	prev := maps.Clone(h.hotkeys.Bindings())
	applied := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.combo == nil {
			continue
		}
		if err := h.hotkeys.Bind(c.name, *c.combo); err != nil {
			h.logger.Warnw("Hotkey rebind failed", "name", c.name, "combination", *c.combo, "error", err)
			h.restoreHotkeys(prev, applied)
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		applied = append(applied, c.name)
	}
	respondJSON(w, http.StatusOK, h.hotkeys.Bindings())
}

func (h *Handler) restoreHotkeys(prev map[string]string, applied []string) {
	for i := len(applied) - 1; i >= 0; i-- {
		name := applied[i]
		if err := h.hotkeys.Bind(name, prev[name]); err != nil {
			h.logger.Errorw("Hotkey rollback failed", "name", name, "combination", prev[name], "error", err)
		}
	}
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	h.events.serve(w, r)
}

// Close обрывает открытые websocket-подписки (их не закрывает http.Server.Shutdown).
func (h *Handler) Close() {
	h.events.close()
}

// fail переводит доменную ошибку в HTTP-статус.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, announcement.ErrNoRouteLoaded),
		errors.Is(err, announcement.ErrAllAnnouncementsPlayed),
		errors.Is(err, announcement.ErrNothingSpokenYet):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, announcement.ErrUnknownPreset):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, announcer.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Errorw("Request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

// requestLogger: журнал запросов в zap вместо middleware.Logger.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debugw("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
