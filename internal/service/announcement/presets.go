package announcement

import "errors"

// ErrUnknownPreset: заготовка с таким id не найдена.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset: заготовленное объявление, доступное по id.
type Preset struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DefaultPresets: статический список заготовок.
func DefaultPresets() []Preset {
	return []Preset{
		{ID: "delay", Title: "Delay", Text: "Due to a delay in operations, our arrival will be a few minutes late. We apologise for the inconvenience."},
		{ID: "doors", Title: "Doors closing", Text: "Please stand clear of the doors. The doors are closing."},
		{ID: "signal", Title: "Signal stop", Text: "We are currently waiting at a signal. The journey will continue shortly."},
		{ID: "no-smoking", Title: "No smoking", Text: "Smoking is not permitted anywhere on this train."},
		{ID: "tickets", Title: "Ticket inspection", Text: "Ladies and gentlemen, we will shortly begin the ticket inspection. Please have your tickets ready."},
		{ID: "lost-property", Title: "Lost property", Text: "Please make sure you have not left any personal belongings on the train."},
	}
}

// FindPreset ищет заготовку по id.
func FindPreset(presets []Preset, id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
