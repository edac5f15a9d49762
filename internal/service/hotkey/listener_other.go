//go:build !windows

package hotkey

func newListener() (listener, error) {
	return nil, ErrUnsupported
}
