package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCombination: строку сочетания клавиш не удалось разобрать.
var ErrInvalidCombination = errors.New("invalid hotkey combination")

// Modifier: битовая маска модификаторов (значения совпадают с MOD_* в Win32).
type Modifier uint32

const (
	ModAlt     Modifier = 0x0001
	ModControl Modifier = 0x0002
	ModShift   Modifier = 0x0004
	ModWin     Modifier = 0x0008
)

// Combination разобранное сочетание, модификаторы и одна клавиша (virtual-key code).
type Combination struct {
	Mods Modifier
	Key  uint32
	name string
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModControl,
	"control": ModControl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
	"super":   ModWin,
	"cmd":     ModWin,
}

var keyCodes = func() map[string]uint32 {
	m := map[string]uint32{
		"space":       0x20,
		"enter":       0x0D,
		"return":      0x0D,
		"tab":         0x09,
		"esc":         0x1B,
		"escape":      0x1B,
		"backspace":   0x08,
		"pause":       0x13,
		"printscreen": 0x2C,
		"pageup":      0x21,
		"pagedown":    0x22,
		"end":         0x23,
		"home":        0x24,
		"left":        0x25,
		"up":          0x26,
		"right":       0x27,
		"down":        0x28,
		"insert":      0x2D,
		"delete":      0x2E,
	}
	for c := 'a'; c <= 'z'; c++ {
		m[string(c)] = uint32(c - 'a' + 'A')
	}
	for c := '0'; c <= '9'; c++ {
		m[string(c)] = uint32(c)
		m["num"+string(c)] = uint32(0x60 + c - '0')
	}
	for i := 1; i <= 24; i++ {
		m[fmt.Sprintf("f%d", i)] = uint32(0x70 + i - 1)
	}
	return m
}()

// ParseCombination разбирает строку вида "ctrl+alt+n". Регистр и пробелы не важны.
// Нужна ровно одна не-модификаторная клавиша.
func ParseCombination(s string) (Combination, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return Combination{}, fmt.Errorf("%w: empty", ErrInvalidCombination)
	}
	var c Combination
	for _, part := range strings.Split(raw, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Combination{}, fmt.Errorf("%w: %q has an empty key", ErrInvalidCombination, s)
		}
		if mod, ok := modifierNames[part]; ok {
			c.Mods |= mod
			continue
		}
		code, ok := keyCodes[part]
		if !ok {
			return Combination{}, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidCombination, part, s)
		}
		if c.name != "" {
			return Combination{}, fmt.Errorf("%w: %q has more than one key", ErrInvalidCombination, s)
		}
		c.Key = code
		c.name = part
	}
	if c.name == "" {
		return Combination{}, fmt.Errorf("%w: %q has no key besides modifiers", ErrInvalidCombination, s)
	}
	return c, nil
}

// String возвращает каноничную запись: ctrl+alt+shift+win+key.
func (c Combination) String() string {
	parts := make([]string, 0, 5)
	if c.Mods&ModControl != 0 {
		parts = append(parts, "ctrl")
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if c.Mods&ModWin != 0 {
		parts = append(parts, "win")
	}
	return strings.Join(append(parts, c.name), "+")
}

// Equal сравнивает сочетания без учёта исходной записи.
func (c Combination) Equal(o Combination) bool {
	return c.Mods == o.Mods && c.Key == o.Key
}
