//go:build windows

package hotkey

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

// RegisterHotKey/UnregisterHotKey берём напрямую из user32: в lxn/win их может не быть.
var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procRegisterHotKey   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey = user32.NewProc("UnregisterHotKey")
)

const (
	modNoRepeat = 0x4000
	// сообщение-будильник: в очереди запросов есть работа
	wmRequest = 0x8000 + 0x21
)

var errListenerClosed = errors.New("hotkey: listener closed")

type winListener struct {
	hwnd  win.HWND
	reqs  chan func()
	fired chan int32
	ready chan error
	done  chan struct{}
}

func newListener() (listener, error) {
	l := &winListener{
		reqs:  make(chan func(), 16),
		fired: make(chan int32, 16),
		ready: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go l.run()
	if err := <-l.ready; err != nil {
		return nil, err
	}
	return l, nil
}

func (l *winListener) events() <-chan int32 { return l.fired }

func (l *winListener) register(id int32, c Combination) error {
	return l.do(func() error {
		r, _, callErr := procRegisterHotKey.Call(uintptr(l.hwnd), uintptr(id), uintptr(uint32(c.Mods)|modNoRepeat), uintptr(c.Key))
		if r == 0 {
			return fmt.Errorf("RegisterHotKey: %w", callErr)
		}
		return nil
	})
}

func (l *winListener) unregister(id int32) error {
	return l.do(func() error {
		r, _, callErr := procUnregisterHotKey.Call(uintptr(l.hwnd), uintptr(id))
		if r == 0 {
			return fmt.Errorf("UnregisterHotKey: %w", callErr)
		}
		return nil
	})
}

func (l *winListener) close() error {
	select {
	case <-l.done:
		return nil
	default:
	}
	win.PostMessage(l.hwnd, win.WM_CLOSE, 0, 0)
	<-l.done
	return nil
}

// do выполняет fn в потоке окна: хоткеи привязаны к потоку, который их зарегистрировал.
func (l *winListener) do(fn func() error) error {
	res := make(chan error, 1)
	select {
	case l.reqs <- func() { res <- fn() }:
	case <-l.done:
		return errListenerClosed
	}
	win.PostMessage(l.hwnd, wmRequest, 0, 0)
	select {
	case err := <-res:
		return err
	case <-l.done:
		return errListenerClosed
	}
}

func (l *winListener) drain() {
	for {
		select {
		case fn := <-l.reqs:
			fn()
		default:
			return
		}
	}
}

func (l *winListener) run() {
	// WinAPI окна и хоткеи живут в закреплённом системном потоке
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	className := syscall.StringToUTF16Ptr("TrainAnnouncerHotkeyWindow")

	var wc win.WNDCLASSEX
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	wc.LpfnWndProc = syscall.NewCallback(func(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
		switch msg {
		case win.WM_HOTKEY:
			select {
			case l.fired <- int32(wParam):
			default:
				// потребитель не успевает: нажатие теряется, но поток окна не блокируется
			}
			return 0
		case wmRequest:
			l.drain()
			return 0
		case win.WM_DESTROY:
			win.PostQuitMessage(0)
			return 0
		}
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	})
	wc.HInstance = win.GetModuleHandle(nil)
	wc.LpszClassName = className
	// класс мог остаться зарегистрированным от предыдущего слушателя: это не ошибка
	win.RegisterClassEx(&wc)

	l.hwnd = win.CreateWindowEx(
		0,
		className,
		syscall.StringToUTF16Ptr("TrainAnnouncerHotkeys"),
		0,
		0, 0, 0, 0,
		0,
		0,
		wc.HInstance,
		nil,
	)
	if l.hwnd == 0 {
		l.ready <- errors.New("hotkey: CreateWindowEx failed")
		close(l.fired)
		return
	}
	l.ready <- nil

	msg := new(win.MSG)
	for {
		r := win.GetMessage(msg, 0, 0, 0)
		if r == 0 || r == -1 {
			break
		}
		win.TranslateMessage(msg)
		win.DispatchMessage(msg)
	}
	// запросы, пришедшие после WM_CLOSE, завершатся через l.done
	close(l.fired)
}
