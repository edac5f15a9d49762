package announcement

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"TrainAnnouncer/internal/route"
)

func newRoute(stations ...string) route.Route {
	return route.Route{Name: "test", Stations: stations}
}

func TestSequencerThreeStations(t *testing.T) {
	tpl := DefaultTemplates()
	s := NewSequencer(Templates{})
	s.LoadRoute(newRoute("A", "B", "C"))

	msg, err := s.NextMessage()
	if err != nil {
		t.Fatalf("call 1: %v", err)
	}
	if want := fmt.Sprintf(tpl.Welcome, "A", "C"); msg != want {
		t.Errorf("call 1 = %q, want %q", msg, want)
	}

	msg, err = s.NextMessage()
	if err != nil {
		t.Fatalf("call 2: %v", err)
	}
	if msg != "Next stop: B." {
		t.Errorf("call 2 = %q, want %q", msg, "Next stop: B.")
	}

	a, err := s.Next()
	if err != nil {
		t.Fatalf("call 3: %v", err)
	}
	if a.Kind != KindTerminal || a.Station != "C" || a.Text != fmt.Sprintf(tpl.Terminal, "C") {
		t.Errorf("call 3 = %+v", a)
	}
	if !s.Finished() {
		t.Error("expected finished after terminal announcement")
	}

	for i := 0; i < 5; i++ {
		if _, err := s.NextMessage(); !errors.Is(err, ErrAllAnnouncementsPlayed) {
			t.Fatalf("call %d: err = %v, want ErrAllAnnouncementsPlayed", 4+i, err)
		}
	}
}

func TestSequencerNStations(t *testing.T) {
	for n := 2; n <= 7; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			stations := make([]string, n)
			for i := range stations {
				stations[i] = fmt.Sprintf("S%d", i)
			}
			s := NewSequencer(DefaultTemplates())
			s.LoadRoute(newRoute(stations...))

			var kinds []Kind
			var named []string
			for i := 0; i < n; i++ {
				a, err := s.Next()
				if err != nil {
					t.Fatalf("call %d: %v", i+1, err)
				}
				kinds = append(kinds, a.Kind)
				if a.Station != "" {
					named = append(named, a.Station)
				}
			}
			if kinds[0] != KindWelcome {
				t.Errorf("first kind = %s, want welcome", kinds[0])
			}
			for i := 1; i < n-1; i++ {
				if kinds[i] != KindNextStop {
					t.Errorf("kind[%d] = %s, want next_stop", i, kinds[i])
				}
			}
			if kinds[n-1] != KindTerminal {
				t.Errorf("last kind = %s, want terminal", kinds[n-1])
			}
			if !reflect.DeepEqual(named, stations[1:]) {
				t.Errorf("announced stations = %v, want %v", named, stations[1:])
			}
			if !s.Finished() {
				t.Error("expected finished")
			}
			for i := 0; i < 3; i++ {
				if _, err := s.Next(); !errors.Is(err, ErrAllAnnouncementsPlayed) {
					t.Errorf("extra call: err = %v", err)
				}
			}
		})
	}
}

func TestSequencerTwoStationsGoesStraightToTerminal(t *testing.T) {
	s := NewSequencer(DefaultTemplates())
	s.LoadRoute(newRoute("Start", "Ziel"))

	if a, _ := s.Next(); a.Kind != KindWelcome {
		t.Fatalf("first = %s, want welcome", a.Kind)
	}
	a, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != KindTerminal || a.Station != "Ziel" {
		t.Fatalf("second = %+v, want terminal Ziel", a)
	}
}

func TestSequencerSingleStation(t *testing.T) {
	s := NewSequencer(DefaultTemplates())
	s.LoadRoute(newRoute("Solo"))

	if name, ok := s.NextStationName(); !ok || name != "Solo" {
		t.Errorf("NextStationName before welcome = %q, %v", name, ok)
	}
	a, err := s.Next()
	if err != nil || a.Kind != KindWelcome {
		t.Fatalf("first = %+v, %v", a, err)
	}
	if a.Text != fmt.Sprintf(DefaultTemplates().Welcome, "Solo", "Solo") {
		t.Errorf("welcome text = %q", a.Text)
	}
	a, err = s.Next()
	if err != nil || a.Kind != KindSingleStation || a.Station != "Solo" {
		t.Fatalf("second = %+v, %v", a, err)
	}
	if !s.Finished() {
		t.Error("expected finished after single-station announcement")
	}
	if _, ok := s.NextStationName(); ok {
		t.Error("NextStationName must be empty once finished")
	}
	if _, err := s.Next(); !errors.Is(err, ErrAllAnnouncementsPlayed) {
		t.Errorf("third: err = %v", err)
	}
}

func TestSequencerFarewellBranch(t *testing.T) {
	// Прощание достижимо только если nextIndex вышел за пределы без флага finished.
	s := NewSequencer(DefaultTemplates())
	s.LoadRoute(newRoute("A", "B", "C"))
	s.welcomePlayed = true
	s.nextIndex = 3

	a, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != KindFarewell || a.Text != DefaultTemplates().Farewell {
		t.Errorf("got %+v, want farewell", a)
	}
	if !s.Finished() {
		t.Error("expected finished after farewell")
	}
	if _, err := s.Next(); !errors.Is(err, ErrAllAnnouncementsPlayed) {
		t.Errorf("farewell must not repeat, err = %v", err)
	}
}

func TestSequencerNoRoute(t *testing.T) {
	s := NewSequencer(DefaultTemplates())
	if s.HasRoute() {
		t.Error("fresh sequencer must not have a route")
	}
	if _, err := s.NextMessage(); !errors.Is(err, ErrNoRouteLoaded) {
		t.Errorf("err = %v, want ErrNoRouteLoaded", err)
	}
	if _, ok := s.NextStationName(); ok {
		t.Error("NextStationName without route must be empty")
	}
	if _, ok := s.CurrentRoute(); ok {
		t.Error("CurrentRoute without route must be empty")
	}
}

func TestNextStationNamePredictsNextAnnouncement(t *testing.T) {
	s := NewSequencer(DefaultTemplates())
	s.LoadRoute(newRoute("A", "B", "C", "D"))

	// до приветствия уже видна первая предстоящая остановка
	if name, ok := s.NextStationName(); !ok || name != "B" {
		t.Fatalf("before welcome = %q, %v; want B", name, ok)
	}
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	for !s.Finished() {
		predicted, ok := s.NextStationName()
		if !ok {
			t.Fatal("expected upcoming station while not finished")
		}
		a, err := s.Next()
		if err != nil {
			t.Fatal(err)
		}
		if a.Station != predicted {
			t.Fatalf("predicted %q, announced %q", predicted, a.Station)
		}
	}
	if _, ok := s.NextStationName(); ok {
		t.Error("NextStationName must be empty once finished")
	}
}

func TestRepeatLast(t *testing.T) {
	s := NewSequencer(DefaultTemplates())
	if _, err := s.RepeatLast(); !errors.Is(err, ErrNothingSpokenYet) {
		t.Errorf("fresh: err = %v", err)
	}
	s.LoadRoute(newRoute("A", "B", "C"))
	if _, err := s.RepeatLast(); !errors.Is(err, ErrNothingSpokenYet) {
		t.Errorf("after load: err = %v", err)
	}

	first, _ := s.NextMessage()
	for i := 0; i < 3; i++ {
		got, err := s.RepeatLast()
		if err != nil || got != first {
			t.Fatalf("repeat %d = %q, %v; want %q", i, got, err, first)
		}
	}
	second, _ := s.NextMessage()
	if got, _ := s.RepeatLast(); got != second {
		t.Errorf("repeat after second = %q, want %q", got, second)
	}

	// повтор не двигает сценарий
	if name, _ := s.NextStationName(); name != "C" {
		t.Errorf("next station after repeats = %q, want C", name)
	}

	s.Reset()
	if _, err := s.RepeatLast(); !errors.Is(err, ErrNothingSpokenYet) {
		t.Errorf("after reset: err = %v", err)
	}
}

func TestResetThenLoadReproducesSequence(t *testing.T) {
	r := newRoute("Aachen", "Düren", "Köln")

	collect := func(s *Sequencer) []string {
		var out []string
		for {
			msg, err := s.NextMessage()
			if err != nil {
				return out
			}
			out = append(out, msg)
		}
	}

	fresh := NewSequencer(DefaultTemplates())
	fresh.LoadRoute(r)
	want := collect(fresh)

	used := NewSequencer(DefaultTemplates())
	used.LoadRoute(newRoute("X", "Y", "Z", "W", "V"))
	_, _ = used.NextMessage()
	_, _ = used.NextMessage()
	used.Reset()
	if used.HasRoute() {
		t.Fatal("Reset must drop the route")
	}
	used.LoadRoute(r)
	if got := collect(used); !reflect.DeepEqual(got, want) {
		t.Errorf("after reset got %q, want %q", got, want)
	}

	// повторная загрузка поверх незавершённого маршрута тоже начинает с нуля
	used.LoadRoute(newRoute("P", "Q"))
	_, _ = used.NextMessage()
	used.LoadRoute(r)
	if got := collect(used); !reflect.DeepEqual(got, want) {
		t.Errorf("after reload got %q, want %q", got, want)
	}
}

func TestLoadRouteCopiesStations(t *testing.T) {
	stations := []string{"A", "B"}
	s := NewSequencer(DefaultTemplates())
	s.LoadRoute(route.Route{Name: "copy", Stations: stations})
	stations[1] = "mutated"

	if name, _ := s.NextStationName(); name != "B" {
		t.Errorf("route must not alias caller slice, next = %q", name)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewSequencer(DefaultTemplates())
	st := s.Snapshot()
	if st.RouteLoaded || st.NextStation != nil || st.LastMessage != nil || st.Stations == nil {
		t.Errorf("empty snapshot = %+v", st)
	}

	s.LoadRoute(route.Route{Name: "ring", Stations: []string{"A", "B"}})
	_, _ = s.NextMessage()
	st = s.Snapshot()
	if !st.RouteLoaded || st.RouteName != "ring" || len(st.Stations) != 2 {
		t.Errorf("snapshot = %+v", st)
	}
	if st.NextStation == nil || *st.NextStation != "B" {
		t.Errorf("NextStation = %v, want B", st.NextStation)
	}
	if st.LastMessage == nil {
		t.Error("LastMessage must be set after welcome")
	}

	_, _ = s.NextMessage()
	st = s.Snapshot()
	if !st.Finished || st.NextStation != nil {
		t.Errorf("finished snapshot = %+v", st)
	}
}

func TestTemplatesValidate(t *testing.T) {
	if err := DefaultTemplates().Validate(); err != nil {
		t.Fatalf("default templates invalid: %v", err)
	}
	if err := (Templates{NextStop: "Ermäßigung 50%%: %s"}).WithDefaults().Validate(); err != nil {
		t.Errorf("escaped percent must be accepted: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Templates)
	}{
		{"missing placeholder", func(tp *Templates) { tp.NextStop = "Next stop." }},
		{"escaped placeholder only", func(tp *Templates) { tp.NextStop = "Next stop: %%s." }},
		{"integer verb", func(tp *Templates) { tp.Terminal = "Final destination %d." }},
		{"generic verb", func(tp *Templates) { tp.SingleStation = "Arriving at %v." }},
		{"extra verb", func(tp *Templates) { tp.NextStop = "Next stop: %s, platform %d." }},
		{"welcome with one station", func(tp *Templates) { tp.Welcome = "Welcome to %s." }},
		{"farewell placeholder", func(tp *Templates) { tp.Farewell = "Goodbye from %s." }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := DefaultTemplates()
			tt.mutate(&bad)
			if err := bad.Validate(); err == nil {
				t.Errorf("Validate() accepted %+v", bad)
			}
		})
	}
}

func TestFindPreset(t *testing.T) {
	presets := DefaultPresets()
	p, ok := FindPreset(presets, "doors")
	if !ok || p.Text == "" {
		t.Fatalf("doors preset missing: %+v", p)
	}
	if _, ok := FindPreset(presets, "nope"); ok {
		t.Error("unknown preset must not be found")
	}
	seen := map[string]bool{}
	for _, p := range presets {
		if seen[p.ID] {
			t.Errorf("duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}
}
