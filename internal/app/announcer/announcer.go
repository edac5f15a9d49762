package announcer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"TrainAnnouncer/internal/route"
	"TrainAnnouncer/internal/service/announcement"
	"TrainAnnouncer/internal/service/history"

	"go.uber.org/zap"
)

// ErrStopped: цикл Announcer уже завершён.
var ErrStopped = errors.New("announcer: stopped")

// Speaker ставит текст в очередь озвучки и не блокируется (speech.Worker).
type Speaker interface {
	Speak(text string) error
}

// Options дополнительные хуки.
type Options struct {
	// OnAnnouncement вызывается из цикла после каждой отправленной в озвучку фразы.
	OnAnnouncement func(kind announcement.Kind)
	// Presets: список заготовок; nil = announcement.DefaultPresets().
	Presets []announcement.Preset
	// HistorySize: сколько последних фраз хранить; 0 = значение по умолчанию.
	HistorySize int
}

const postBuffer = 64

// Announcer владеет секвенсором. Все операции выполняются по одной в горутине Run,
// поэтому секвенсору не нужны блокировки. HTTP-обработчики ждут результат через Do,
// колбэки хоткеев и чата отправляют работу через Post.
type Announcer struct {
	seq     *announcement.Sequencer
	presets []announcement.Preset
	journal *history.History
	speaker Speaker
	opts    Options
	logger  *zap.SugaredLogger

	cmds chan func()
	done chan struct{}

	subsMu  sync.Mutex
	subs    map[int]chan announcement.State
	nextSub int
	closed  bool
}

func New(tpl announcement.Templates, sp Speaker, opts Options, logger *zap.SugaredLogger) *Announcer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	presets := opts.Presets
	if presets == nil {
		presets = announcement.DefaultPresets()
	}
	return &Announcer{
		seq:     announcement.NewSequencer(tpl),
		presets: presets,
		journal: history.New(opts.HistorySize),
		speaker: sp,
		opts:    opts,
		logger:  logger,
		cmds:    make(chan func(), postBuffer),
		done:    make(chan struct{}),
		subs:    map[int]chan announcement.State{},
	}
}

// Run обрабатывает команды до отмены ctx. Подписки закрываются при выходе.
func (a *Announcer) Run(ctx context.Context) error {
	defer a.closeSubscribers()
	defer close(a.done)
	a.logger.Infow("Announcer started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Infow("Announcer stopped")
			return nil
		case fn := <-a.cmds:
			a.exec(fn)
		}
	}
}

func (a *Announcer) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorw("Announcer command panic", "panic", r)
		}
	}()
	fn()
}

// Состояния команды Do: цикл и вызывающий соревнуются за неё через CAS.
const (
	cmdPending int32 = iota
	cmdRunning
	cmdAbandoned
)

// Do выполняет fn в цикле и ждёт завершения. Если ctx истёк раньше, чем цикл
// взялся за команду, fn не выполняется вовсе: отказ клиента не двигает сценарий.
func (a *Announcer) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		if !state.CompareAndSwap(cmdPending, cmdRunning) {
			return
		}
		fn()
	}
	select {
	case a.cmds <- cmd:
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-a.done:
		return ErrStopped
	}

	// abandon снимает команду с очереди; false значит, что fn уже выполняется
	// и результат нужно дождаться.
	abandon := func() bool { return state.CompareAndSwap(cmdPending, cmdAbandoned) }
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		if abandon() {
			return context.Cause(ctx)
		}
	case <-a.done:
		if abandon() {
			return ErrStopped
		}
	}
	<-finished
	return nil
}

// Post ставит fn в цикл без ожидания. При переполненной очереди команда отбрасывается.
func (a *Announcer) Post(fn func()) {
	select {
	case <-a.done:
		a.logger.Warnw("Announcer command dropped: stopped")
		return
	default:
	}
	select {
	case a.cmds <- fn:
	default:
		a.logger.Warnw("Announcer command dropped: queue full", "capacity", postBuffer)
	}
}

// LoadRoute заменяет маршрут и сбрасывает прогресс.
func (a *Announcer) LoadRoute(ctx context.Context, r route.Route) (announcement.State, error) {
	var st announcement.State
	err := a.Do(ctx, func() {
		a.seq.LoadRoute(r)
		a.logger.Infow("Route loaded", "name", r.Name, "stations", r.Len())
		st = a.publish()
	})
	return st, err
}

// Next озвучивает очередное объявление.
func (a *Announcer) Next(ctx context.Context) (announcement.Announcement, announcement.State, error) {
	var (
		ann     announcement.Announcement
		st      announcement.State
		nextErr error
	)
	err := a.Do(ctx, func() { ann, st, nextErr = a.next() })
	if err != nil {
		return announcement.Announcement{}, announcement.State{}, err
	}
	return ann, st, nextErr
}

// Repeat повторно озвучивает последний текст.
func (a *Announcer) Repeat(ctx context.Context) (string, error) {
	var (
		text   string
		repErr error
	)
	if err := a.Do(ctx, func() { text, repErr = a.repeat() }); err != nil {
		return "", err
	}
	return text, repErr
}

// Reset очищает маршрут и прогресс.
func (a *Announcer) Reset(ctx context.Context) (announcement.State, error) {
	var st announcement.State
	err := a.Do(ctx, func() { st = a.reset() })
	return st, err
}

// State: текущий снимок.
func (a *Announcer) State(ctx context.Context) (announcement.State, error) {
	var st announcement.State
	err := a.Do(ctx, func() { st = a.seq.Snapshot() })
	return st, err
}

// Presets: список заготовок; не меняется после создания.
func (a *Announcer) Presets() []announcement.Preset {
	out := make([]announcement.Preset, len(a.presets))
	copy(out, a.presets)
	return out
}

// SpeakPreset озвучивает заготовку. Сценарий маршрута и «последний текст» не меняются.
func (a *Announcer) SpeakPreset(ctx context.Context, id string) (announcement.Preset, error) {
	var (
		p      announcement.Preset
		preErr error
	)
	if err := a.Do(ctx, func() { p, preErr = a.preset(id) }); err != nil {
		return announcement.Preset{}, err
	}
	return p, preErr
}

// History: последние отправленные в озвучку фразы, от старых к новым.
// Журнал потокобезопасен и читается в обход цикла.
func (a *Announcer) History() []history.Entry {
	return a.journal.Entries()
}

// NextAsync, RepeatAsync, ResetAsync и PresetAsync: варианты для колбэков
// хоткеев и чата: результат только логируется.
func (a *Announcer) NextAsync(source string) {
	a.Post(func() {
		if _, _, err := a.next(); err != nil {
			a.logger.Infow("Next announcement unavailable", "source", source, "reason", err.Error())
		}
	})
}

func (a *Announcer) RepeatAsync(source string) {
	a.Post(func() {
		if _, err := a.repeat(); err != nil {
			a.logger.Infow("Repeat unavailable", "source", source, "reason", err.Error())
		}
	})
}

func (a *Announcer) ResetAsync(source string) {
	a.Post(func() {
		a.reset()
		a.logger.Infow("Announcer reset", "source", source)
	})
}

func (a *Announcer) PresetAsync(id, source string) {
	a.Post(func() {
		if _, err := a.preset(id); err != nil {
			a.logger.Infow("Preset unavailable", "source", source, "id", id, "reason", err.Error())
		}
	})
}

// Subscribe возвращает канал снимков состояния после каждого изменения.
// Медленный подписчик получает только самый свежий снимок.
func (a *Announcer) Subscribe() (<-chan announcement.State, func()) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	ch := make(chan announcement.State, 1)
	if a.closed {
		close(ch)
		return ch, func() {}
	}
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	return ch, func() {
		a.subsMu.Lock()
		defer a.subsMu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

// Методы ниже выполняются только в горутине Run.

func (a *Announcer) next() (announcement.Announcement, announcement.State, error) {
	ann, err := a.seq.Next()
	if err != nil {
		return announcement.Announcement{}, a.seq.Snapshot(), err
	}
	a.say(ann.Kind, ann.Text)
	a.logger.Infow("Announcement", "kind", string(ann.Kind), "station", ann.Station, "text", ann.Text)
	return ann, a.publish(), nil
}

func (a *Announcer) repeat() (string, error) {
	text, err := a.seq.RepeatLast()
	if err != nil {
		return "", err
	}
	a.say(announcement.KindRepeat, text)
	a.logger.Infow("Announcement repeated", "text", text)
	return text, nil
}

func (a *Announcer) reset() announcement.State {
	a.seq.Reset()
	a.journal.Clear()
	return a.publish()
}

func (a *Announcer) preset(id string) (announcement.Preset, error) {
	p, ok := announcement.FindPreset(a.presets, id)
	if !ok {
		return announcement.Preset{}, fmt.Errorf("%w: %q", announcement.ErrUnknownPreset, id)
	}
	a.say(announcement.KindPreset, p.Text)
	a.logger.Infow("Preset announced", "id", p.ID)
	return p, nil
}

// say ставит текст в очередь озвучки. Сбой очереди не откатывает состояние.
func (a *Announcer) say(kind announcement.Kind, text string) {
	if err := a.speaker.Speak(text); err != nil {
		a.logger.Warnw("Speech enqueue failed", "kind", string(kind), "error", err)
		return
	}
	a.journal.Add(string(kind), text)
	if a.opts.OnAnnouncement != nil {
		a.opts.OnAnnouncement(kind)
	}
}

func (a *Announcer) publish() announcement.State {
	st := a.seq.Snapshot()
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- st:
		default:
			// вытесняем устаревший снимок
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
	return st
}

func (a *Announcer) closeSubscribers() {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	a.closed = true
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}
