package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/domain"
)

// LockKind selects a room-wide lock.
type LockKind int

const (
	LockChat LockKind = iota
	LockScreen
)

// FlagKind selects a per-participant lock flag.
type FlagKind int

const (
	FlagAudio FlagKind = iota
	FlagVideo
)

// roomState is the full mutable state of one live room. Join order is kept
// as an explicit slice; the head of the slice is the host.
type roomState struct {
	code         domain.RoomCode
	order        []core.SessionID
	participants map[core.SessionID]*domain.Participant
	chatLog      []domain.ChatEntry
	chatLocked   bool
	screenLocked bool
	screenOwner  core.SessionID
}

// RoomStore is the in-memory registry of rooms and the single source of
// truth for the engine. All mutations are serialized behind one mutex so
// concurrent joins, leaves and host actions never interleave partially.
// A room exists iff it has at least one participant.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*roomState
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[domain.RoomCode]*roomState)}
}

// JoinResult is everything a joining connection must be told, captured
// atomically with the membership change.
type JoinResult struct {
	IsHost bool
	Others []core.ParticipantView
	Locks  core.RoomLocks
}

// AddParticipant inserts a participant, creating the room lazily. The
// participant that creates the room becomes host.
func (s *RoomStore) AddParticipant(code domain.RoomCode, sid core.SessionID, name string) JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		r = &roomState{
			code:         code,
			participants: make(map[core.SessionID]*domain.Participant),
		}
		s.rooms[code] = r
	}

	p := domain.NewParticipant(name)
	p.IsHost = len(r.order) == 0
	r.participants[sid] = p
	r.order = append(r.order, sid)

	others := make([]core.ParticipantView, 0, len(r.order)-1)
	for _, id := range r.order {
		if id == sid {
			continue
		}
		others = append(others, viewOf(id, r.participants[id]))
	}

	log.Info().Str("module", "app.store").Str("sid", string(sid)).Str("room", string(code)).Bool("host", p.IsHost).Msg("participant added")
	return JoinResult{
		IsHost: p.IsHost,
		Others: others,
		Locks:  core.RoomLocks{ChatLock: r.chatLocked, ScreenLock: r.screenLocked, ScreenOwner: r.screenOwner},
	}
}

// RemoveResult reports everything that changed when a participant left,
// captured atomically so cleanup broadcasts never show a half-cleaned room.
type RemoveResult struct {
	Name           string
	WasHost        bool
	Promoted       core.SessionID // new host, empty when no promotion happened
	ScreenReleased bool
	RoomDeleted    bool
}

// RemoveParticipant deletes the participant, releases screen ownership if
// held, promotes the new head of the join order when the host left, and
// deletes the room entirely once its membership reaches zero.
func (s *RoomStore) RemoveParticipant(code domain.RoomCode, sid core.SessionID) (RemoveResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return RemoveResult{}, false
	}
	p, ok := r.participants[sid]
	if !ok {
		return RemoveResult{}, false
	}

	res := RemoveResult{Name: p.Name, WasHost: p.IsHost}
	delete(r.participants, sid)
	for i, id := range r.order {
		if id == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.screenOwner == sid {
		r.screenOwner = ""
		res.ScreenReleased = true
	}

	if len(r.order) == 0 {
		delete(s.rooms, code)
		res.RoomDeleted = true
		log.Info().Str("module", "app.store").Str("room", string(code)).Msg("room cleared")
		return res, true
	}

	if res.WasHost {
		next := r.order[0]
		r.participants[next].IsHost = true
		res.Promoted = next
		log.Info().Str("module", "app.store").Str("room", string(code)).Str("sid", string(next)).Msg("new host assigned")
	}
	return res, true
}

// IsHost reports whether sid is the current host of the room.
func (s *RoomStore) IsHost(code domain.RoomCode, sid core.SessionID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	p, ok := r.participants[sid]
	return ok && p.IsHost
}

// SetParticipantFlag sets a per-participant lock flag. The actor must be
// the room's host, otherwise the call is a silent no-op.
func (s *RoomStore) SetParticipantFlag(code domain.RoomCode, by, target core.SessionID, flag FlagKind, locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	actor, ok := r.participants[by]
	if !ok || !actor.IsHost {
		return false
	}
	p, ok := r.participants[target]
	if !ok {
		return false
	}
	switch flag {
	case FlagAudio:
		p.LockedAudio = locked
	case FlagVideo:
		p.LockedVideo = locked
	}
	return true
}

// LockAudioAll locks audio for every participant except the host itself and
// returns the affected session ids in join order. Host-gated.
func (s *RoomStore) LockAudioAll(code domain.RoomCode, by core.SessionID) []core.SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil
	}
	actor, ok := r.participants[by]
	if !ok || !actor.IsHost {
		return nil
	}
	muted := make([]core.SessionID, 0, len(r.order))
	for _, id := range r.order {
		if id == by {
			continue
		}
		r.participants[id].LockedAudio = true
		muted = append(muted, id)
	}
	return muted
}

// SetRoomLock sets a room-wide lock. Host-gated.
func (s *RoomStore) SetRoomLock(code domain.RoomCode, by core.SessionID, kind LockKind, locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	actor, ok := r.participants[by]
	if !ok || !actor.IsHost {
		return false
	}
	switch kind {
	case LockChat:
		r.chatLocked = locked
	case LockScreen:
		r.screenLocked = locked
	}
	return true
}

// SetLanguage updates a participant's preferred language.
func (s *RoomStore) SetLanguage(code domain.RoomCode, sid core.SessionID, lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	p, ok := r.participants[sid]
	if !ok {
		return false
	}
	p.SetLang(lang)
	return true
}

// AppendChat appends a chat entry unless chat is locked at send time.
// blocked reports the lock state observed atomically with the append.
func (s *RoomStore) AppendChat(code domain.RoomCode, e domain.ChatEntry) (blocked, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[code]
	if !exists {
		return false, false
	}
	if r.chatLocked {
		return true, true
	}
	r.chatLog = append(r.chatLog, e)
	return false, true
}

// StartScreenShare claims screen ownership for sid. A new claimer silently
// displaces any previous owner. blocked is set when the room's screen lock
// rejects the claim.
func (s *RoomStore) StartScreenShare(code domain.RoomCode, sid core.SessionID) (ok, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[code]
	if !exists {
		return false, false
	}
	if _, member := r.participants[sid]; !member {
		return false, false
	}
	if r.screenLocked {
		return false, true
	}
	r.screenOwner = sid
	return true, false
}

// StopScreenShare clears ownership only when sid is the current owner.
// ok reports room existence; the caller broadcasts regardless.
func (s *RoomStore) StopScreenShare(code domain.RoomCode, sid core.SessionID) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[code]
	if !exists {
		return false
	}
	if r.screenOwner == sid {
		r.screenOwner = ""
	}
	return true
}

// Snapshot returns the full participant list in join order.
func (s *RoomStore) Snapshot(code domain.RoomCode) ([]core.ParticipantView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, false
	}
	out := make([]core.ParticipantView, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, viewOf(id, r.participants[id]))
	}
	return out, true
}

// Members returns the session ids of a room in join order.
func (s *RoomStore) Members(code domain.RoomCode) []core.SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil
	}
	out := make([]core.SessionID, len(r.order))
	copy(out, r.order)
	return out
}

// ParticipantName resolves a member's display name.
func (s *RoomStore) ParticipantName(code domain.RoomCode, sid core.SessionID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return "", false
	}
	p, ok := r.participants[sid]
	if !ok {
		return "", false
	}
	return p.Name, true
}

// List reports all live rooms for the rooms API.
func (s *RoomStore) List() []core.RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(s.rooms))
	for code, r := range s.rooms {
		out = append(out, core.RoomInfo{Code: code, MemberCount: len(r.order)})
	}
	return out
}

func viewOf(id core.SessionID, p *domain.Participant) core.ParticipantView {
	return core.ParticipantView{
		ID:          id,
		Name:        p.Name,
		LockedAudio: p.LockedAudio,
		LockedVideo: p.LockedVideo,
		Lang:        p.Lang,
	}
}
