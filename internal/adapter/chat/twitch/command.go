package twitch

import (
	"strings"
	"sync"
	"time"
)

// Команды чата.
const (
	CommandNext   = "next"
	CommandRepeat = "repeat"
	CommandReset  = "reset"
	CommandPreset = "preset"
)

// Command разобранная команда вида !name [arg].
type Command struct {
	Name string
	Arg  string
}

// ParseCommand распознаёт !next, !repeat, !reset и !preset <id>.
// Регистр имени не важен, лишние слова после команд без аргумента игнорируются.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return Command{}, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return Command{}, false
	}
	name := strings.ToLower(fields[0])
	switch name {
	case CommandNext, CommandRepeat, CommandReset:
		return Command{Name: name}, true
	case CommandPreset:
		if len(fields) < 2 {
			return Command{}, false
		}
		return Command{Name: name, Arg: strings.ToLower(fields[1])}, true
	default:
		return Command{}, false
	}
}

// dedupWindow: повтор той же команды тем же пользователем в этом окне отбрасывается.
const dedupWindow = 2 * time.Second

// Gate решает, кому можно управлять объявлениями: стример, модераторы
// и явный список пользователей.
type Gate struct {
	allowed map[string]struct{}
	window  time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[string]seen
}

type seen struct {
	cmd Command
	at  time.Time
}

func NewGate(allowedUsers []string, window time.Duration) *Gate {
	allowed := make(map[string]struct{}, len(allowedUsers))
	for _, u := range allowedUsers {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return &Gate{allowed: allowed, window: window, now: time.Now, last: map[string]seen{}}
}

// Allow возвращает false и причину (forbidden|duplicate), если команду надо пропустить.
func (g *Gate) Allow(user string, badges map[string]int, cmd Command) (bool, string) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return false, "forbidden"
	}
	_, listed := g.allowed[user]
	if badges["broadcaster"] == 0 && badges["moderator"] == 0 && !listed {
		return false, "forbidden"
	}

	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	// записи старше окна уже ничего не блокируют
	for u, prev := range g.last {
		if now.Sub(prev.at) >= g.window {
			delete(g.last, u)
		}
	}
	if prev, ok := g.last[user]; ok && prev.cmd == cmd && now.Sub(prev.at) < g.window {
		return false, "duplicate"
	}
	g.last[user] = seen{cmd: cmd, at: now}
	return true, ""
}
