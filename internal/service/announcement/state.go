package announcement

// State: снимок состояния для UI и web-клиентов.
type State struct {
	RouteLoaded bool     `json:"routeLoaded"`
	RouteName   string   `json:"routeName"`
	Stations    []string `json:"stations"`
	NextStation *string  `json:"nextStation"`
	Finished    bool     `json:"finished"`
	LastMessage *string  `json:"lastMessage"`
}

// Snapshot строит State; состояние секвенсора не меняется.
func (s *Sequencer) Snapshot() State {
	st := State{Stations: []string{}, Finished: s.finished}
	if r, ok := s.CurrentRoute(); ok {
		st.RouteLoaded = true
		st.RouteName = r.Name
		st.Stations = r.Stations
	}
	if name, ok := s.NextStationName(); ok {
		st.NextStation = &name
	}
	if msg, err := s.RepeatLast(); err == nil {
		st.LastMessage = &msg
	}
	return st
}
