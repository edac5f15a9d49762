package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrWorkerStopped: Speak после Stop, воркер не перезапускается.
	ErrWorkerStopped = errors.New("speech: worker stopped")
	// ErrStopTimeout: воркер не завершился за отведённое время.
	ErrStopTimeout = errors.New("speech: worker did not stop in time")
)

// Speaker: внешняя способность «произнести текст». Блокируется до конца речи
// и должен вернуться как можно быстрее после отмены ctx (это и есть прерывание).
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Interrupter опционально сбрасывает звучащее аудио перед новой фразой.
type Interrupter interface {
	Interrupt()
}

// Policy определяет поведение при новой фразе во время текущей.
type Policy string

const (
	// PolicyPreempt: новая фраза прерывает звучащую; слышна только самая свежая.
	PolicyPreempt Policy = "preempt"
	// PolicyQueue: текущая фраза дозвучивает, следующая ждёт.
	PolicyQueue Policy = "queue"
)

// ParsePolicy разбирает значение из конфигурации; пустое значение: preempt.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyPreempt:
		return PolicyPreempt, nil
	case PolicyQueue:
		return PolicyQueue, nil
	default:
		return "", fmt.Errorf("speech: unknown policy %q (want preempt|queue)", s)
	}
}

const defaultStopTimeout = 2 * time.Second

// Result: итог обработки одной фразы.
type Result struct {
	ID          string
	Text        string
	Duration    time.Duration
	Err         error
	Interrupted bool
}

// Options настройки воркера.
type Options struct {
	Policy      Policy
	StopTimeout time.Duration
	// OnEnqueue и OnResult вызываются из горутин продюсера и воркера соответственно.
	OnEnqueue func(depth int)
	OnResult  func(Result)
}

type request struct {
	id   string
	seq  uint64
	text string
	stop bool
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// Worker сериализует запросы на озвучку от любого числа продюсеров в один
// упорядоченный поток. Speak не блокирует; единственный потребитель: своя горутина.
type Worker struct {
	speaker Speaker
	opts    Options
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	queue    []request
	seq      uint64 // номер последней поставленной фразы
	stopping bool
	current  *inflight
	notify   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// NewWorker создаёт воркер и сразу запускает цикл обработки.
func NewWorker(sp Speaker, opts Options, logger *zap.SugaredLogger) *Worker {
	if opts.Policy == "" {
		opts.Policy = PolicyPreempt
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		speaker: sp,
		opts:    opts,
		logger:  logger,
		queue:   make([]request, 0, 8),
		notify:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Speak ставит текст в очередь и сразу возвращается. Порядок: FIFO по всем продюсерам.
func (w *Worker) Speak(text string) error {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return ErrWorkerStopped
	}
	w.seq++
	req := request{id: uuid.NewString(), seq: w.seq, text: text}
	w.queue = append(w.queue, req)
	depth := len(w.queue)
	if w.opts.Policy == PolicyPreempt && w.current != nil && w.current.seq < req.seq {
		w.current.cancel()
	}
	w.mu.Unlock()

	w.wake()
	if w.opts.OnEnqueue != nil {
		w.opts.OnEnqueue(depth)
	}
	w.logger.Debugw("Speech enqueued", "id", req.id, "depth", depth)
	return nil
}

// Pending: количество фраз, ещё не взятых в работу.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, r := range w.queue {
		if !r.stop {
			n++
		}
	}
	return n
}

// Done закрывается после выхода цикла обработки.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Stop ставит в очередь сигнал завершения и ждёт ограниченное время,
// пока воркер дообработает очередь. По таймауту текущая речь отменяется.
// Повторные вызовы возвращают результат первого.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopping = true
		w.queue = append(w.queue, request{stop: true})
		w.mu.Unlock()
		w.wake()

		t := time.NewTimer(w.opts.StopTimeout)
		defer t.Stop()
		select {
		case <-w.done:
		case <-t.C:
			w.logger.Warnw("Speech worker stop timeout, cancelling in-flight speech", "timeout", w.opts.StopTimeout.String())
			w.cancel()
			w.stopErr = ErrStopTimeout
			return
		}
		w.cancel()
	})
	return w.stopErr
}

func (w *Worker) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		req := w.next()
		if req.stop {
			w.logger.Debugw("Speech worker exiting")
			return
		}
		w.render(req)
	}
}

// next блокируется до появления элемента в очереди.
func (w *Worker) next() request {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			req := w.queue[0]
			w.queue[0] = request{}
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return req
		}
		w.mu.Unlock()
		<-w.notify
	}
}

func (w *Worker) render(req request) {
	ctx, cancel := context.WithCancel(w.ctx)
	defer cancel()

	w.mu.Lock()
	// за этой фразой уже стоит более новая: пробуем её в уже отменённом контексте
	if w.opts.Policy == PolicyPreempt && w.seq > req.seq {
		cancel()
	}
	w.current = &inflight{seq: req.seq, cancel: cancel}
	w.mu.Unlock()

	if in, ok := w.speaker.(Interrupter); ok {
		in.Interrupt()
	}

	started := time.Now()
	err := w.speak(ctx, req.text)
	res := Result{
		ID:          req.id,
		Text:        req.text,
		Duration:    time.Since(started),
		Interrupted: ctx.Err() != nil,
	}
	if !res.Interrupted {
		res.Err = err
	}

	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()

	switch {
	case res.Err != nil:
		w.logger.Warnw("Speech failed", "id", req.id, "error", res.Err)
	case res.Interrupted:
		w.logger.Debugw("Speech interrupted", "id", req.id, "took", res.Duration.String())
	default:
		w.logger.Debugw("Speech done", "id", req.id, "took", res.Duration.String())
	}
	if w.opts.OnResult != nil {
		w.opts.OnResult(res)
	}
}

// speak изолирует сбои движка: ни ошибка, ни паника не останавливают цикл.
func (w *Worker) speak(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speech: speaker panic: %v", r)
		}
	}()
	return w.speaker.Speak(ctx, text)
}
