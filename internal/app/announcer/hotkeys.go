package announcer

import (
	"errors"
	"fmt"
	"sync"
)

// Имена привязок глобальных хоткеев.
const (
	HotkeyNext   = "next"
	HotkeyRepeat = "repeat"
)

// ErrUnknownHotkey: нет действия с таким именем.
var ErrUnknownHotkey = errors.New("unknown hotkey action")

// Registrar: источник глобальных хоткеев (hotkey.Bridge).
type Registrar interface {
	Register(name, combination string, cb func()) error
	Bindings() map[string]string
}

// Hotkeys связывает действия Announcer с хоткеями. Колбэки только ставят
// команду в цикл Announcer: сами они выполняются на потоке слушателя.
type Hotkeys struct {
	reg Registrar
	a   *Announcer

	mu sync.Mutex
}

func NewHotkeys(reg Registrar, a *Announcer) *Hotkeys {
	return &Hotkeys{reg: reg, a: a}
}

func (h *Hotkeys) action(name string) (func(), error) {
	switch name {
	case HotkeyNext:
		return func() { h.a.NextAsync("hotkey") }, nil
	case HotkeyRepeat:
		return func() { h.a.RepeatAsync("hotkey") }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHotkey, name)
	}
}

// Bind назначает сочетание действию. Пустое сочетание снимает привязку,
// при ошибке прежнее сочетание продолжает работать.
func (h *Hotkeys) Bind(name, combination string) error {
	cb, err := h.action(name)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reg.Register(name, combination, cb)
}

// Bindings: текущие сочетания по действиям.
func (h *Hotkeys) Bindings() map[string]string {
	b := h.reg.Bindings()
	out := map[string]string{HotkeyNext: "", HotkeyRepeat: ""}
	for k, v := range b {
		out[k] = v
	}
	return out
}
