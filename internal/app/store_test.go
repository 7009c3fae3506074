package app

import (
	"fmt"
	"testing"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/domain"
)

const testRoom = domain.RoomCode("ABC123")

func hostCount(t *testing.T, s *RoomStore, code domain.RoomCode) int {
	t.Helper()
	snap, ok := s.Snapshot(code)
	if !ok {
		t.Fatalf("room %s does not exist", code)
	}
	n := 0
	for _, p := range snap {
		if s.IsHost(code, p.ID) {
			n++
		}
	}
	return n
}

func TestFirstJoinerIsHost(t *testing.T) {
	s := NewRoomStore()

	res := s.AddParticipant(testRoom, "p1", "Alice")
	if !res.IsHost {
		t.Fatal("first joiner must be host")
	}
	if len(res.Others) != 0 {
		t.Fatalf("first joiner sees %d others, want 0", len(res.Others))
	}

	res = s.AddParticipant(testRoom, "p2", "Bob")
	if res.IsHost {
		t.Fatal("second joiner must not be host")
	}
	if len(res.Others) != 1 || res.Others[0].ID != "p1" {
		t.Fatalf("second joiner others = %+v, want [p1]", res.Others)
	}
}

func TestExactlyOneHostAfterEveryMembershipChange(t *testing.T) {
	s := NewRoomStore()
	for i := 0; i < 5; i++ {
		sid := core.SessionID(fmt.Sprintf("p%d", i))
		s.AddParticipant(testRoom, sid, fmt.Sprintf("user-%d", i))
		if got := hostCount(t, s, testRoom); got != 1 {
			t.Fatalf("after join %d: %d hosts, want 1", i, got)
		}
	}
	// Remove in mixed order, host first.
	for _, sid := range []core.SessionID{"p0", "p2", "p4", "p1"} {
		if _, ok := s.RemoveParticipant(testRoom, sid); !ok {
			t.Fatalf("remove %s failed", sid)
		}
		if got := hostCount(t, s, testRoom); got != 1 {
			t.Fatalf("after removing %s: %d hosts, want 1", sid, got)
		}
	}
}

func TestHostLeavePromotesJoinOrderHead(t *testing.T) {
	s := NewRoomStore()
	s.AddParticipant(testRoom, "p1", "Alice")
	s.AddParticipant(testRoom, "p2", "Bob")
	s.AddParticipant(testRoom, "p3", "Carol")

	res, ok := s.RemoveParticipant(testRoom, "p1")
	if !ok {
		t.Fatal("remove failed")
	}
	if !res.WasHost {
		t.Fatal("p1 was host")
	}
	if res.Promoted != "p2" {
		t.Fatalf("promoted %q, want p2", res.Promoted)
	}
	if !s.IsHost(testRoom, "p2") {
		t.Fatal("p2 must be host after promotion")
	}

	// Non-host departure promotes nobody.
	res, _ = s.RemoveParticipant(testRoom, "p3")
	if res.Promoted != "" {
		t.Fatalf("unexpected promotion %q", res.Promoted)
	}
}

func TestRoomExistsIffPopulated(t *testing.T) {
	s := NewRoomStore()
	if _, ok := s.Snapshot(testRoom); ok {
		t.Fatal("room must not exist before first join")
	}

	s.AddParticipant(testRoom, "p1", "Alice")
	if _, ok := s.Snapshot(testRoom); !ok {
		t.Fatal("room must exist after join")
	}

	res, ok := s.RemoveParticipant(testRoom, "p1")
	if !ok || !res.RoomDeleted {
		t.Fatalf("last leave must delete the room, got %+v ok=%v", res, ok)
	}
	if _, ok := s.Snapshot(testRoom); ok {
		t.Fatal("room must be unobservable after last leave")
	}
	// And a re-join recreates it from scratch with a fresh host.
	if res := s.AddParticipant(testRoom, "p9", "Zed"); !res.IsHost {
		t.Fatal("creator of recreated room must be host")
	}
}

func TestHostGatedFlagMutations(t *testing.T) {
	s := NewRoomStore()
	s.AddParticipant(testRoom, "p1", "Alice")
	s.AddParticipant(testRoom, "p2", "Bob")

	if s.SetParticipantFlag(testRoom, "p2", "p1", FlagAudio, true) {
		t.Fatal("non-host mutation must be a no-op")
	}
	if !s.SetParticipantFlag(testRoom, "p1", "p2", FlagAudio, true) {
		t.Fatal("host mutation must apply")
	}
	snap, _ := s.Snapshot(testRoom)
	for _, p := range snap {
		if p.ID == "p2" && !p.LockedAudio {
			t.Fatal("p2 audio must be locked")
		}
		if p.ID == "p1" && p.LockedAudio {
			t.Fatal("p1 audio must stay unlocked")
		}
	}

	if s.SetRoomLock(testRoom, "p2", LockChat, true) {
		t.Fatal("non-host room lock must be a no-op")
	}
	if !s.SetRoomLock(testRoom, "p1", LockChat, true) {
		t.Fatal("host room lock must apply")
	}
	if blocked, _ := s.AppendChat(testRoom, domain.ChatEntry{Sender: "Bob", Body: "hi"}); !blocked {
		t.Fatal("chat must be blocked while locked")
	}
}

func TestMuteAllSparesHost(t *testing.T) {
	s := NewRoomStore()
	s.AddParticipant(testRoom, "p1", "Alice")
	s.AddParticipant(testRoom, "p2", "Bob")
	s.AddParticipant(testRoom, "p3", "Carol")

	if got := s.LockAudioAll(testRoom, "p2"); got != nil {
		t.Fatalf("non-host mute-all returned %v, want nil", got)
	}

	muted := s.LockAudioAll(testRoom, "p1")
	if len(muted) != 2 || muted[0] != "p2" || muted[1] != "p3" {
		t.Fatalf("muted = %v, want [p2 p3] in join order", muted)
	}
	snap, _ := s.Snapshot(testRoom)
	for _, p := range snap {
		locked := p.ID != "p1"
		if p.LockedAudio != locked {
			t.Fatalf("%s lockedAudio=%v", p.ID, p.LockedAudio)
		}
	}
}

func TestScreenOwnershipSingleValued(t *testing.T) {
	s := NewRoomStore()
	s.AddParticipant(testRoom, "p1", "Alice")
	s.AddParticipant(testRoom, "p2", "Bob")

	if ok, blocked := s.StartScreenShare(testRoom, "p1"); !ok || blocked {
		t.Fatalf("start: ok=%v blocked=%v", ok, blocked)
	}
	// A new requester displaces the previous owner silently.
	if ok, _ := s.StartScreenShare(testRoom, "p2"); !ok {
		t.Fatal("displacement must succeed")
	}

	// A stop from a non-owner never clears an existing owner's slot.
	s.StopScreenShare(testRoom, "p1")
	snapLocks := func() core.RoomLocks {
		res := s.AddParticipant(testRoom, "probe", "probe")
		s.RemoveParticipant(testRoom, "probe")
		return res.Locks
	}
	if got := snapLocks().ScreenOwner; got != "p2" {
		t.Fatalf("owner after non-owner stop = %q, want p2", got)
	}

	s.StopScreenShare(testRoom, "p2")
	if got := snapLocks().ScreenOwner; got != "" {
		t.Fatalf("owner after owner stop = %q, want empty", got)
	}
}

func TestScreenLockBlocksStart(t *testing.T) {
	s := NewRoomStore()
	s.AddParticipant(testRoom, "p1", "Alice")
	s.SetRoomLock(testRoom, "p1", LockScreen, true)

	ok, blocked := s.StartScreenShare(testRoom, "p1")
	if ok || !blocked {
		t.Fatalf("locked screen start: ok=%v blocked=%v", ok, blocked)
	}
}

func TestDisconnectReleasesScreenOwnership(t *testing.T) {
	s := NewRoomStore()
	s.AddParticipant(testRoom, "p1", "Alice")
	s.AddParticipant(testRoom, "p2", "Bob")
	s.StartScreenShare(testRoom, "p1")

	res, _ := s.RemoveParticipant(testRoom, "p1")
	if !res.ScreenReleased {
		t.Fatal("owner departure must release the screen")
	}
	// Owner must not be stuck for the next claimer.
	if ok, blocked := s.StartScreenShare(testRoom, "p2"); !ok || blocked {
		t.Fatalf("subsequent start: ok=%v blocked=%v", ok, blocked)
	}
}

func TestOperationsOnMissingRoomAreNoOps(t *testing.T) {
	s := NewRoomStore()
	if _, ok := s.RemoveParticipant("nope", "p1"); ok {
		t.Fatal("remove on missing room must report !ok")
	}
	if s.SetLanguage("nope", "p1", "fr") {
		t.Fatal("set-language on missing room must be a no-op")
	}
	if _, ok := s.AppendChat("nope", domain.ChatEntry{}); ok {
		t.Fatal("chat on missing room must be a no-op")
	}
	if s.StopScreenShare("nope", "p1") {
		t.Fatal("screen stop on missing room must be a no-op")
	}
}
