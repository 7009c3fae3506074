// Package domain contains entity without logic, just meta-data
package domain

const (
	MaxDisplayNameLen = 36
	DefaultName       = "Guest"
	DefaultLang       = "en"
)

// Participant represents one connected identity within a room.
// No transport or lifecycle logic here.
type Participant struct {
	Name        string
	IsHost      bool
	LockedAudio bool
	LockedVideo bool
	Lang        string
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
// Empty names fall back to a guest name, overlong names are truncated.
func NewParticipant(name string) *Participant {
	if name == "" {
		name = DefaultName
	}
	if len(name) > MaxDisplayNameLen {
		name = name[:MaxDisplayNameLen]
	}
	return &Participant{Name: name, Lang: DefaultLang}
}

// SetLang normalizes an empty language code to the default.
func (p *Participant) SetLang(lang string) {
	if lang == "" {
		lang = DefaultLang
	}
	p.Lang = lang
}
