package player

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat: формат нельзя проиграть напрямую.
var ErrUnsupportedFormat = errors.New("unsupported format for direct playback; use mp3 or wav")

// Player воспроизводит аудио потоком в зависимости от формата.
// Play блокируется до конца звука или отмены ctx и всегда закрывает r.
type Player interface {
	Play(ctx context.Context, format string, r io.ReadCloser) error
}

// Default реализует Player поверх общего beep speaker и поддерживает mp3 и wav.
type Default struct {
	volumeDB float64

	mu   sync.Mutex
	rate beep.SampleRate // с какой частотой инициализирован speaker; 0: ещё не инициализирован
}

// New создаёт плеер без изменения громкости (0 dB).
func New() *Default { return &Default{volumeDB: 0} }

// NewWithVolume создаёт плеер с предустановленной громкостью в dB (отрицательные: тише).
func NewWithVolume(db float64) *Default { return &Default{volumeDB: db} }

// VolumeFromPercent переводит громкость 0-100 в dB для effects.Volume (Base 2).
// 100 без изменений, каждые 5 пунктов вниз дают минус одну ступень.
func VolumeFromPercent(v int) float64 {
	v = max(0, min(100, v))
	return float64(v-100) / 5.0
}

func (d *Default) Play(ctx context.Context, format string, r io.ReadCloser) error {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch strings.ToLower(format) {
	case "wav":
		streamer, f, err = wav.Decode(r)
	case "mp3":
		streamer, f, err = mp3.Decode(r)
	default:
		_ = r.Close()
		return ErrUnsupportedFormat
	}
	if err != nil {
		_ = r.Close()
		return err
	}
	defer streamer.Close()

	if err := d.init(f.SampleRate); err != nil {
		return err
	}
	vol := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   d.volumeDB,
		Silent:   false,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// глушим сразу: после Clear микшер больше не читает streamer
		speaker.Clear()
		return context.Cause(ctx)
	}
}

// Interrupt обрывает всё, что сейчас звучит.
func (d *Default) Interrupt() {
	d.mu.Lock()
	ready := d.rate != 0
	d.mu.Unlock()
	if ready {
		speaker.Clear()
	}
}

// init переинициализирует speaker только при смене частоты дискретизации.
func (d *Default) init(rate beep.SampleRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rate == rate {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return err
	}
	d.rate = rate
	return nil
}
