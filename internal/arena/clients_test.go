package arena

import (
	"bytes"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sxweetlollipop2912/racing-arena/internal/testutil"
)

// fakeConn records written frames and never blocks.
type fakeConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (f *fakeConn) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, net.ErrClosed
	}
	return f.buf.Write(p)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) raw() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.String()
}

func (f *fakeConn) lines() []string {
	s := strings.TrimSuffix(f.raw(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func newPumpedClient(t *testing.T) (*Client, *fakeConn) {
	t.Helper()

	fc := &fakeConn{}
	c := NewClient(fc, "test", 0, 0)
	go c.writePump()
	t.Cleanup(func() { _ = c.Close() })
	return c, fc
}

func TestClientManagerAttachDetach(t *testing.T) {
	cm := NewClientManager()
	if cm.Count() != 0 {
		t.Errorf("initial Count() = %d, want 0", cm.Count())
	}

	c1, _ := newPumpedClient(t)
	c2, _ := newPumpedClient(t)
	cm.Attach(c1)
	cm.Attach(c2)
	if cm.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cm.Count())
	}

	cm.Bind(c1.ID(), "alice")
	if got := cm.Nickname(c1.ID()); got != "alice" {
		t.Errorf("Nickname(c1) = %q, want alice", got)
	}
	if got := cm.Nickname(c2.ID()); got != "" {
		t.Errorf("Nickname(c2) = %q, want empty", got)
	}

	if got := cm.Detach(c1.ID()); got != "alice" {
		t.Errorf("Detach(c1) = %q, want alice", got)
	}
	if got := cm.Detach(c2.ID()); got != "" {
		t.Errorf("Detach(c2) = %q, want empty", got)
	}
	if cm.Count() != 0 {
		t.Errorf("Count() after detach = %d, want 0", cm.Count())
	}
}

func TestWritePumpFraming(t *testing.T) {
	c, fc := newPumpedClient(t)

	if err := c.Send("REGISTRATION_SUCCESS;alice,False"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		return fc.raw() == "REGISTRATION_SUCCESS;alice,False\n"
	}, time.Second)
}

func TestSendToAndBroadcast(t *testing.T) {
	cm := NewClientManager()
	alice, aliceConn := newPumpedClient(t)
	bob, bobConn := newPumpedClient(t)
	unbound, unboundConn := newPumpedClient(t)

	cm.Attach(alice)
	cm.Attach(bob)
	cm.Attach(unbound)
	cm.Bind(alice.ID(), "alice")
	cm.Bind(bob.ID(), "bob")

	cm.SendTo(alice.ID(), "ANSWER_CORRECT;7")
	// Unknown connection IDs are dropped silently.
	cm.SendTo("nope", "ANSWER_CORRECT;7")

	cm.Broadcast("PLAYER_READY;alice", "alice")
	cm.Broadcast("GAME_STARTING;10;30;10")

	testutil.WaitForCondition(t, func() bool {
		return len(aliceConn.lines()) == 2 && len(bobConn.lines()) == 2
	}, time.Second)

	if got, want := strings.Join(aliceConn.lines(), "|"), "ANSWER_CORRECT;7|GAME_STARTING;10;30;10"; got != want {
		t.Errorf("alice frames = %q, want %q", got, want)
	}
	if got, want := strings.Join(bobConn.lines(), "|"), "PLAYER_READY;alice|GAME_STARTING;10;30;10"; got != want {
		t.Errorf("bob frames = %q, want %q", got, want)
	}
	// The unregistered connection is invisible to broadcasts.
	if got := unboundConn.raw(); got != "" {
		t.Errorf("unregistered connection received %q, want nothing", got)
	}
}

func TestBroadcastSurvivesDeadRecipient(t *testing.T) {
	cm := NewClientManager()
	alice, aliceConn := newPumpedClient(t)

	// stuck's pipe has no reader and a queue of one, so repeated
	// broadcasts overflow it and force a disconnect.
	clientEnd, serverEnd := testutil.PipeConn(t)
	_ = clientEnd
	stuck := NewClient(serverEnd, "pipe", 1, time.Second)
	go stuck.writePump()
	t.Cleanup(func() { _ = stuck.Close() })

	cm.Attach(alice)
	cm.Attach(stuck)
	cm.Bind(alice.ID(), "alice")
	cm.Bind(stuck.ID(), "bob")

	for _, msg := range []string{"QUESTION;1;3;+;4", "SCORES;;", "GAME_OVER;"} {
		cm.Broadcast(msg)
	}

	// The healthy connection sees every frame no matter what happened
	// to the stuck one.
	testutil.WaitForCondition(t, func() bool {
		return len(aliceConn.lines()) == 3
	}, time.Second)
}

func TestResetBindingsKeepsConnections(t *testing.T) {
	cm := NewClientManager()
	c, _ := newPumpedClient(t)
	cm.Attach(c)
	cm.Bind(c.ID(), "alice")

	cm.ResetBindings()

	if got := cm.Nickname(c.ID()); got != "" {
		t.Errorf("Nickname after reset = %q, want empty", got)
	}
	if cm.Count() != 1 {
		t.Errorf("Count after reset = %d, want 1", cm.Count())
	}
}

func TestSlowClientDisconnected(t *testing.T) {
	client, server := testutil.PipeConn(t)
	_ = client // nobody reads this end, so pipe writes block

	c := NewClient(server, "pipe", 1, time.Second)
	go c.writePump()
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Send("first"); err != nil {
		t.Fatalf("first Send error: %v", err)
	}
	// Wait until the pump picked the frame up and is stuck writing it.
	testutil.WaitForCondition(t, func() bool { return len(c.sendCh) == 0 }, time.Second)

	if err := c.Send("second"); err != nil {
		t.Fatalf("second Send error: %v", err)
	}
	if err := c.Send("third"); err == nil {
		t.Fatal("third Send should fail on a full queue")
	}
}
