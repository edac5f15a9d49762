package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrUnsupported: глобальные хоткеи недоступны на этой платформе.
var ErrUnsupported = errors.New("hotkey: global hotkeys unavailable on this platform")

// listener: платформенный источник нажатий. Реализация под Windows в listener_windows.go.
type listener interface {
	register(id int32, c Combination) error
	unregister(id int32) error
	// events отдаёт id сработавших хоткеев; закрывается после close.
	events() <-chan int32
	close() error
}

type binding struct {
	id    int32
	combo Combination
	cb    func()
}

// Bridge связывает именованные глобальные хоткеи с колбэками.
// Колбэки вызываются из горутины слушателя, а не из владельца состояния:
// вызывающий обязан сам перенаправить их в свой контекст исполнения.
type Bridge struct {
	l      listener
	logger *zap.SugaredLogger

	mu       sync.Mutex
	bindings map[string]*binding
	byID     map[int32]*binding
	nextID   int32

	done chan struct{}
}

// New создаёт мост поверх платформенного слушателя.
func New(logger *zap.SugaredLogger) (*Bridge, error) {
	l, err := newListener()
	if err != nil {
		return nil, err
	}
	return newBridge(l, logger), nil
}

func newBridge(l listener, logger *zap.SugaredLogger) *Bridge {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	b := &Bridge{
		l:        l,
		logger:   logger,
		bindings: map[string]*binding{},
		byID:     map[int32]*binding{},
		done:     make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Register назначает сочетание под именем name, заменяя прежнее.
// Пустое сочетание снимает привязку (хоткей намеренно отсутствует).
// При ошибке прежняя привязка остаётся активной.
func (b *Bridge) Register(name, combination string, cb func()) error {
	if strings.TrimSpace(combination) == "" {
		b.Unregister(name)
		return nil
	}
	combo, err := ParseCombination(combination)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.bindings[name]
	if old != nil && old.combo.Equal(combo) {
		old.cb = cb
		return nil
	}

	b.nextID++
	nb := &binding{id: b.nextID, combo: combo, cb: cb}
	if err := b.l.register(nb.id, combo); err != nil {
		return fmt.Errorf("hotkey %s=%s: %w", name, combo, err)
	}
	if old != nil {
		b.drop(old)
	}
	b.bindings[name] = nb
	b.byID[nb.id] = nb
	b.logger.Infow("Hotkey registered", "name", name, "combination", combo.String())
	return nil
}

// Unregister снимает привязку; неизвестное имя не ошибка.
func (b *Bridge) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.bindings[name]; ok {
		b.drop(old)
		delete(b.bindings, name)
	}
}

// Clear снимает все привязки.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, bd := range b.bindings {
		b.drop(bd)
		delete(b.bindings, name)
	}
}

// Bindings: текущие привязки в каноничной записи.
func (b *Bridge) Bindings() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.bindings))
	for name, bd := range b.bindings {
		out[name] = bd.combo.String()
	}
	return out
}

// Close снимает все привязки и останавливает слушателя.
func (b *Bridge) Close() error {
	b.Clear()
	err := b.l.close()
	<-b.done
	return err
}

// drop вызывается под b.mu.
func (b *Bridge) drop(bd *binding) {
	delete(b.byID, bd.id)
	if err := b.l.unregister(bd.id); err != nil {
		b.logger.Warnw("Hotkey unregister failed", "combination", bd.combo.String(), "error", err)
	}
}

func (b *Bridge) dispatch() {
	defer close(b.done)
	for id := range b.l.events() {
		b.mu.Lock()
		var cb func()
		if bd, ok := b.byID[id]; ok {
			cb = bd.cb
		}
		b.mu.Unlock()
		if cb != nil {
			b.invoke(cb)
		}
	}
}

func (b *Bridge) invoke(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorw("Hotkey callback panic", "panic", r)
		}
	}()
	cb()
}
