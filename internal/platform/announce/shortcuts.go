package announce

import "strings"

// Command is what a keyboard shortcut asks the host to do.
type Command string

const (
	CommandShowProgress    Command = "show-progress"
	CommandCreateBookmark  Command = "create-bookmark"
	CommandNextChapter     Command = "next-chapter"
	CommandPreviousChapter Command = "previous-chapter"
	CommandResume          Command = "resume"
	CommandHelp            Command = "help"
	CommandEscape          Command = "escape"
	CommandToggleTracking  Command = "toggle-tracking"
)

type Shortcut struct {
	Key     string
	Label   string
	Command Command
	Alt     bool
}

var shortcuts = []Shortcut{
	{Key: "KeyP", Label: "Alt+P: Show progress", Command: CommandShowProgress, Alt: true},
	{Key: "KeyB", Label: "Alt+B: Create bookmark", Command: CommandCreateBookmark, Alt: true},
	{Key: "KeyN", Label: "Alt+N: Next chapter", Command: CommandNextChapter, Alt: true},
	{Key: "KeyM", Label: "Alt+M: Previous chapter", Command: CommandPreviousChapter, Alt: true},
	{Key: "KeyR", Label: "Alt+R: Resume reading", Command: CommandResume, Alt: true},
	{Key: "KeyH", Label: "Alt+H: Show help", Command: CommandHelp, Alt: true},
	{Key: "Space", Label: "Space: Toggle tracking", Command: CommandToggleTracking, Alt: true},
	{Key: "Escape", Label: "Escape: Close dialogs", Command: CommandEscape, Alt: true},
}

var shortcutNotice = map[Command]string{
	CommandShowProgress:    "Reading progress shortcut activated",
	CommandCreateBookmark:  "Bookmark shortcut activated",
	CommandNextChapter:     "Next chapter shortcut activated",
	CommandPreviousChapter: "Previous chapter shortcut activated",
	CommandResume:          "Resume reading shortcut activated",
	CommandHelp:            "Help shortcut activated",
	CommandEscape:          "Escape pressed",
}

func Shortcuts() []Shortcut {
	return append([]Shortcut(nil), shortcuts...)
}

// HandleKey resolves a key code pressed together with alt. Non-alt presses
// are ignored so the shortcuts never collide with typing.
func (a *Announcer) HandleKey(code string, alt bool) (Command, bool) {
	if !alt {
		return "", false
	}
	for _, s := range shortcuts {
		if s.Key != code {
			continue
		}
		if notice, ok := shortcutNotice[s.Command]; ok {
			a.Announce(notice, Polite)
		}
		if s.Command == CommandHelp {
			a.Announce("Keyboard shortcuts: "+helpText(), Polite)
		}
		return s.Command, true
	}
	return "", false
}

func helpText() string {
	labels := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		labels = append(labels, s.Label)
	}
	return strings.Join(labels, ", ")
}
