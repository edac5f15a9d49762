package announcement

import (
	"fmt"
	"strings"
)

// Templates: единственный набор шаблонов объявлений. Плейсхолдеры %s подставляются через fmt.
type Templates struct {
	Welcome       string `env:"MSG_WELCOME"`        // %s: начальная, %s: конечная станция
	NextStop      string `env:"MSG_NEXT_STOP"`      // %s: станция
	Terminal      string `env:"MSG_TERMINAL"`       // %s: конечная станция
	SingleStation string `env:"MSG_SINGLE_STATION"` // %s: единственная станция маршрута
	Farewell      string `env:"MSG_FAREWELL"`       // без станции
}

// DefaultTemplates возвращает стандартные тексты.
func DefaultTemplates() Templates {
	return Templates{
		Welcome:       "Welcome aboard. Today we travel from %s to %s. Please keep an eye on your luggage and enjoy your journey.",
		NextStop:      "Next stop: %s.",
		Terminal:      "We are shortly arriving at our final destination, %s. Please take all your belongings with you.",
		SingleStation: "We are shortly arriving at our final destination, %s. Please mind your step when leaving the train.",
		Farewell:      "We have already reached all stations. Thank you for travelling with us.",
	}
}

// WithDefaults подставляет стандартный текст вместо каждого пустого шаблона.
func (t Templates) WithDefaults() Templates {
	def := DefaultTemplates()
	if strings.TrimSpace(t.Welcome) == "" {
		t.Welcome = def.Welcome
	}
	if strings.TrimSpace(t.NextStop) == "" {
		t.NextStop = def.NextStop
	}
	if strings.TrimSpace(t.Terminal) == "" {
		t.Terminal = def.Terminal
	}
	if strings.TrimSpace(t.SingleStation) == "" {
		t.SingleStation = def.SingleStation
	}
	if strings.TrimSpace(t.Farewell) == "" {
		t.Farewell = def.Farewell
	}
	return t
}

// Validate проверяет, что каждый шаблон содержит ровно нужное число %s
// и никаких других глаголов fmt (%d, %v, лишних аргументов).
func (t Templates) Validate() error {
	checks := []struct {
		name   string
		tpl    string
		render func(args ...string) string
		want   int
	}{
		{"welcome", t.Welcome, func(a ...string) string { return t.welcome(a[0], a[1]) }, 2},
		{"next stop", t.NextStop, func(a ...string) string { return t.nextStop(a[0]) }, 1},
		{"terminal", t.Terminal, func(a ...string) string { return t.terminal(a[0]) }, 1},
		{"single station", t.SingleStation, func(a ...string) string { return t.single(a[0]) }, 1},
	}
	sample := []string{"\x00station-a\x00", "\x00station-b\x00"}
	for _, c := range checks {
		// %% даёт литеральный знак процента и плейсхолдером не считается
		bare := strings.ReplaceAll(c.tpl, "%%", "")
		if got := strings.Count(bare, "%s"); got != c.want || strings.Count(bare, "%") != c.want {
			return fmt.Errorf("announcement: %s template must contain exactly %d %%s placeholder(s) and no other verbs", c.name, c.want)
		}
		out := c.render(sample...)
		if strings.Contains(out, "%!") {
			return fmt.Errorf("announcement: %s template is malformed: %q", c.name, out)
		}
		for _, arg := range sample[:c.want] {
			if strings.Count(out, arg) != 1 {
				return fmt.Errorf("announcement: %s template must use each station once", c.name)
			}
		}
	}
	// farewell произносится как есть, без подстановки
	if strings.Contains(t.Farewell, "%s") {
		return fmt.Errorf("announcement: farewell template must not contain placeholders")
	}
	return nil
}

func (t Templates) welcome(from, to string) string { return fmt.Sprintf(t.Welcome, from, to) }
func (t Templates) nextStop(station string) string { return fmt.Sprintf(t.NextStop, station) }
func (t Templates) terminal(station string) string { return fmt.Sprintf(t.Terminal, station) }
func (t Templates) single(station string) string   { return fmt.Sprintf(t.SingleStation, station) }
