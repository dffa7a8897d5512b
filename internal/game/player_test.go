package game

import (
	"errors"
	"strings"
	"testing"
)

func TestValidNickname(t *testing.T) {
	for _, n := range []string{"a", "Alice", "alice_99", "ABCDEFGHIJ", "_", "0"} {
		if !ValidNickname(n) {
			t.Errorf("ValidNickname(%q) = false, want true", n)
		}
	}
	for _, n := range []string{"", "ABCDEFGHIJK", "bad nick", "nick;x", "nick,x", "héllo"} {
		if ValidNickname(n) {
			t.Errorf("ValidNickname(%q) = true, want false", n)
		}
	}
}

func TestRegisterOrderAndDuplicates(t *testing.T) {
	pm := NewPlayerManager(10)

	for _, n := range []string{"carol", "alice", "bob"} {
		if _, err := pm.Register(n); err != nil {
			t.Fatalf("Register(%q) error: %v", n, err)
		}
	}
	if pm.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pm.Len())
	}

	// Registration order is preserved for roster packing.
	names := make([]string, 0, 3)
	for _, p := range pm.All() {
		names = append(names, p.Nickname)
	}
	if got := strings.Join(names, ","); got != "carol,alice,bob" {
		t.Errorf("All() order = %q, want carol,alice,bob", got)
	}

	if _, err := pm.Register("alice"); !errors.Is(err, ErrNicknameTaken) {
		t.Errorf("duplicate Register error = %v, want ErrNicknameTaken", err)
	}
	if _, err := pm.Register("no good"); !errors.Is(err, ErrInvalidNickname) {
		t.Errorf("invalid Register error = %v, want ErrInvalidNickname", err)
	}

	p := pm.Get("carol")
	if p == nil || p.Position != 1 {
		t.Errorf("Get(carol) = %+v, want position 1", p)
	}
	if pm.Get("mallory") != nil {
		t.Error("Get(mallory) should be nil")
	}
}

func TestRegisterLobbyFull(t *testing.T) {
	pm := NewPlayerManager(2)
	pm.Register("alice")
	pm.Register("bob")

	if _, err := pm.Register("carol"); !errors.Is(err, ErrLobbyFull) {
		t.Errorf("Register over cap error = %v, want ErrLobbyFull", err)
	}
	// Capacity is reported before nickname validity.
	if _, err := pm.Register("bad nick!"); !errors.Is(err, ErrLobbyFull) {
		t.Errorf("Register over cap error = %v, want ErrLobbyFull", err)
	}
}

func TestApplyDelta(t *testing.T) {
	p := &Player{Nickname: "alice", Position: 1}

	// A fall below position 1 is clamped and contributes no diff.
	p.ApplyDelta(-1)
	if p.Position != 1 || p.DiffPoints != 0 {
		t.Errorf("after clamped fall: position=%d diff=%d, want 1, 0", p.Position, p.DiffPoints)
	}

	// Correct answer plus fastest bonus accumulate within the round.
	p.ApplyDelta(1)
	p.ApplyDelta(1)
	if p.Position != 3 || p.DiffPoints != 2 {
		t.Errorf("after +1+1: position=%d diff=%d, want 3, 2", p.Position, p.DiffPoints)
	}

	p.ResetRound()
	if p.DiffPoints != 0 || p.Answered() {
		t.Errorf("ResetRound left diff=%d answered=%v", p.DiffPoints, p.Answered())
	}

	// An unclamped fall shows up as a negative diff.
	p.Position = 2
	p.ApplyDelta(-1)
	if p.Position != 1 || p.DiffPoints != -1 {
		t.Errorf("after fall from 2: position=%d diff=%d, want 1, -1", p.Position, p.DiffPoints)
	}
}

func TestRemove(t *testing.T) {
	pm := NewPlayerManager(4)
	pm.Register("alice")
	pm.Register("bob")
	pm.Register("carol")

	pm.Remove("bob")
	if pm.Len() != 2 {
		t.Fatalf("Len() after Remove = %d, want 2", pm.Len())
	}
	if pm.Get("bob") != nil {
		t.Error("Get(bob) should be nil after Remove")
	}
	if got, want := pm.PackLobbyInfo(), "alice,False;carol,False"; got != want {
		t.Errorf("PackLobbyInfo() = %q, want %q", got, want)
	}

	// Removing an unknown nickname is a no-op.
	pm.Remove("mallory")
	if pm.Len() != 2 {
		t.Errorf("Len() after removing unknown = %d, want 2", pm.Len())
	}
}

func TestCanStart(t *testing.T) {
	pm := NewPlayerManager(4)
	if pm.CanStart() {
		t.Error("empty lobby reported startable")
	}

	a, _ := pm.Register("alice")
	a.Ready = true
	if pm.CanStart() {
		t.Error("single ready player reported startable")
	}

	b, _ := pm.Register("bob")
	if pm.CanStart() {
		t.Error("lobby with unready player reported startable")
	}

	b.Ready = true
	if !pm.CanStart() {
		t.Error("two ready players reported not startable")
	}
}

func TestDisqualifyStreakers(t *testing.T) {
	pm := NewPlayerManager(4)
	a, _ := pm.Register("alice")
	b, _ := pm.Register("bob")
	c, _ := pm.Register("carol")
	a.WAStreak = 3
	b.WAStreak = 2
	c.WAStreak = 4

	dropped := pm.DisqualifyStreakers()
	if len(dropped) != 2 || dropped[0] != a || dropped[1] != c {
		t.Fatalf("DisqualifyStreakers() = %v, want [alice carol]", dropped)
	}
	if !a.Disqualified || !c.Disqualified || b.Disqualified {
		t.Error("disqualified flags wrong after DisqualifyStreakers")
	}

	// Already-disqualified players are not reported again.
	if again := pm.DisqualifyStreakers(); len(again) != 0 {
		t.Errorf("second DisqualifyStreakers() = %v, want empty", again)
	}

	q := pm.Qualified()
	if len(q) != 1 || q[0] != b {
		t.Errorf("Qualified() = %v, want [bob]", q)
	}
}

func TestPackLobbyInfo(t *testing.T) {
	pm := NewPlayerManager(4)
	a, _ := pm.Register("alice")
	pm.Register("bob")
	a.Ready = true

	if got, want := pm.PackLobbyInfo(), "alice,True;bob,False"; got != want {
		t.Errorf("PackLobbyInfo() = %q, want %q", got, want)
	}
}

func TestPackRoundInfo(t *testing.T) {
	pm := NewPlayerManager(4)
	a, _ := pm.Register("alice")
	pm.Register("bob")

	// Correct answer plus fastest bonus within one round.
	a.ApplyDelta(1)
	a.ApplyDelta(1)

	if got, want := pm.PackRoundInfo(), "alice,2,3;bob,0,1"; got != want {
		t.Errorf("PackRoundInfo() = %q, want %q", got, want)
	}
}
