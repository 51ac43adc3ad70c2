package telegram

import "strings"

// Payload is the content of a message, classified by which field is present.
// The concrete types are CommandPayload, TextPayload, VoicePayload,
// LocationPayload and UnsupportedPayload.
type Payload interface {
	payload()
}

// CommandPayload is a /start or /help command.
type CommandPayload struct {
	Name string // without the leading slash or @botname suffix
}

// TextPayload is free text, taken as a place name.
type TextPayload struct {
	Text string
}

// VoicePayload is a voice note.
type VoicePayload struct {
	Voice Voice
}

// LocationPayload is a shared geolocation.
type LocationPayload struct {
	Location Location
}

// UnsupportedPayload covers stickers, photos and everything else.
type UnsupportedPayload struct{}

func (CommandPayload) payload()     {}
func (TextPayload) payload()        {}
func (VoicePayload) payload()       {}
func (LocationPayload) payload()    {}
func (UnsupportedPayload) payload() {}

var knownCommands = map[string]bool{
	"start": true,
	"help":  true,
}

// Classify picks the payload variant of a message. Only /start and /help are
// commands; any other text, including unknown /commands, is a place name.
func Classify(m *Message) Payload {
	if m == nil {
		return UnsupportedPayload{}
	}

	switch {
	case m.Text != nil:
		if name, ok := parseCommand(*m.Text); ok && knownCommands[name] {
			return CommandPayload{Name: name}
		}
		return TextPayload{Text: *m.Text}
	case m.Voice != nil:
		return VoicePayload{Voice: *m.Voice}
	case m.Location != nil:
		return LocationPayload{Location: *m.Location}
	default:
		return UnsupportedPayload{}
	}
}

func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.TrimPrefix(strings.TrimSpace(text), "/")
	if i := strings.IndexAny(name, " \n"); i >= 0 {
		return "", false
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name, name != ""
}
