package announcement

import (
	"errors"

	"TrainAnnouncer/internal/route"
)

var (
	// ErrNoRouteLoaded: операция требует загруженного маршрута.
	ErrNoRouteLoaded = errors.New("no route loaded")
	// ErrAllAnnouncementsPlayed: штатный конец сценария, говорить больше нечего.
	ErrAllAnnouncementsPlayed = errors.New("all announcements have been played")
	// ErrNothingSpokenYet: повтор запрошен до первого объявления.
	ErrNothingSpokenYet = errors.New("nothing has been announced yet")
)

// Kind: тип объявления.
type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindNextStop      Kind = "next_stop"
	KindTerminal      Kind = "terminal"
	KindSingleStation Kind = "single_station"
	KindFarewell      Kind = "farewell"
	KindRepeat        Kind = "repeat"
	KindPreset        Kind = "preset"
)

// Announcement: одно сформированное объявление.
type Announcement struct {
	Kind    Kind
	Text    string
	Station string // пусто для welcome/farewell/preset
}

// Sequencer детерминированно выдаёт очередное объявление по загруженному маршруту.
// Чистая логика без I/O и блокировок: вызовы должен сериализовать владелец.
type Sequencer struct {
	tpl Templates

	route         *route.Route
	welcomePlayed bool
	nextIndex     int
	finished      bool
	lastMessage   string
	hasLast       bool
}

// NewSequencer создаёт пустой секвенсор. Пустые шаблоны заменяются стандартными.
func NewSequencer(tpl Templates) *Sequencer {
	return &Sequencer{tpl: tpl.WithDefaults(), nextIndex: 1}
}

// LoadRoute заменяет маршрут и сбрасывает прогресс.
// Маршрут без станций должен быть отсеян вызывающим (route.Parse это гарантирует).
func (s *Sequencer) LoadRoute(r route.Route) {
	rc := r.Clone()
	s.route = &rc
	s.welcomePlayed = false
	s.finished = false
	s.lastMessage = ""
	s.hasLast = false
	if len(rc.Stations) > 1 {
		s.nextIndex = 1
	} else {
		s.nextIndex = 0
	}
}

func (s *Sequencer) HasRoute() bool { return s.route != nil }

// CurrentRoute возвращает копию текущего маршрута.
func (s *Sequencer) CurrentRoute() (route.Route, bool) {
	if s.route == nil {
		return route.Route{}, false
	}
	return s.route.Clone(), true
}

// Finished: больше ни одного объявления для этого маршрута не будет.
func (s *Sequencer) Finished() bool { return s.finished }

// NextMessage возвращает текст очередного объявления.
func (s *Sequencer) NextMessage() (string, error) {
	a, err := s.Next()
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Next вычисляет очередное объявление. Порядок ветвей фиксирован:
// завершено → приветствие → маршрут из одной станции → прощание → следующая/конечная станция.
func (s *Sequencer) Next() (Announcement, error) {
	if s.route == nil {
		return Announcement{}, ErrNoRouteLoaded
	}
	if s.finished {
		return Announcement{}, ErrAllAnnouncementsPlayed
	}
	stations := s.route.Stations

	if !s.welcomePlayed {
		s.welcomePlayed = true
		return s.remember(Announcement{Kind: KindWelcome, Text: s.tpl.welcome(s.route.First(), s.route.Last())}), nil
	}

	if len(stations) == 1 {
		s.finished = true
		return s.remember(Announcement{Kind: KindSingleStation, Text: s.tpl.single(stations[0]), Station: stations[0]}), nil
	}

	if s.nextIndex >= len(stations) {
		s.finished = true
		return s.remember(Announcement{Kind: KindFarewell, Text: s.tpl.Farewell}), nil
	}

	station := stations[s.nextIndex]
	var a Announcement
	if s.nextIndex == len(stations)-1 {
		a = Announcement{Kind: KindTerminal, Text: s.tpl.terminal(station), Station: station}
		s.finished = true
	} else {
		a = Announcement{Kind: KindNextStop, Text: s.tpl.nextStop(station), Station: station}
	}
	s.nextIndex++
	return s.remember(a), nil
}

// RepeatLast возвращает последний произнесённый текст без изменения состояния.
func (s *Sequencer) RepeatLast() (string, error) {
	if !s.hasLast {
		return "", ErrNothingSpokenYet
	}
	return s.lastMessage, nil
}

// NextStationName: станция, которую назовёт следующий вызов Next.
// До приветствия многостанционного маршрута это первая промежуточная/конечная остановка.
func (s *Sequencer) NextStationName() (string, bool) {
	if s.route == nil || s.finished {
		return "", false
	}
	stations := s.route.Stations
	if len(stations) == 1 {
		return stations[0], true
	}
	if s.nextIndex >= len(stations) {
		return "", false
	}
	return stations[s.nextIndex], true
}

// Reset очищает всё состояние, включая маршрут и последний текст.
func (s *Sequencer) Reset() {
	s.route = nil
	s.welcomePlayed = false
	s.finished = false
	s.lastMessage = ""
	s.hasLast = false
	s.nextIndex = 1
}

func (s *Sequencer) remember(a Announcement) Announcement {
	s.lastMessage = a.Text
	s.hasLast = true
	return a
}
