package game

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sxweetlollipop2912/racing-arena/internal/protocol"
)

// Sender is the outbound side of the arena. The controller emits every
// frame through it and never touches sockets; the client registry
// implements it with non-blocking per-connection queues, so these calls
// are safe to make while holding the game lock.
type Sender interface {
	// Bind associates a connection with a nickname after a successful
	// registration.
	Bind(connID, nickname string)
	// SendTo delivers one frame to a single connection. Unknown or dead
	// connections are silently dropped.
	SendTo(connID, msg string)
	// Broadcast delivers one frame to every registered connection whose
	// nickname is not in the exclusion list.
	Broadcast(msg string, except ...string)
	// ResetBindings unbinds all connections while keeping them open,
	// forcing clients to register again.
	ResetBindings()
}

// State is the phase of the game state machine.
type State int

const (
	// StateLobby accepts REGISTER, READY and UNREADY.
	StateLobby State = iota
	// StateProcessing rejects every command; the round loop owns the
	// game between answer windows.
	StateProcessing
	// StateWaiting accepts ANSWER.
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "LOBBY"
	case StateProcessing:
		return "PROCESSING"
	case StateWaiting:
		return "WAITING_FOR_ANSWERS"
	default:
		return "UNKNOWN"
	}
}

// Config holds the match parameters.
type Config struct {
	MaxPlayers  int
	RaceLength  int
	AnswerTime  time.Duration
	PrepareTime time.Duration
	OperandMin  int
	OperandMax  int
	// Seed fixes the question sequence; zero seeds randomly.
	Seed uint64
}

// Game is the authoritative controller: it owns the state machine, the
// player registry and the question generator. One mutex serializes
// every mutation; it is held across handler bodies and the round loop's
// scoring phase, never across sleeps or network reads.
type Game struct {
	cfg    Config
	sender Sender

	// mu защищает state, players и questions
	mu        sync.Mutex
	state     State
	players   *PlayerManager
	questions *Generator
	base      context.Context
}

// New creates a controller in the lobby state.
func New(cfg Config, sender Sender) *Game {
	return &Game{
		cfg:       cfg,
		sender:    sender,
		state:     StateLobby,
		players:   NewPlayerManager(cfg.MaxPlayers),
		questions: NewGenerator(cfg.OperandMin, cfg.OperandMax, cfg.Seed),
		base:      context.Background(),
	}
}

// Start binds future match loops to ctx: cancelling it stops a running
// loop at its next sleep. Call once before serving connections.
func (g *Game) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = ctx
}

// State возвращает текущую фазу игры.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// HandleRegister registers a nickname for a connection, binds the
// connection, replies with the lobby roster and announces the join to
// everyone else. Allowed only in the lobby.
func (g *Game) HandleRegister(connID, nickname string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateLobby {
		return ErrRegisterClosed
	}
	p, err := g.players.Register(nickname)
	if err != nil {
		return err
	}
	p.ConnID = connID

	g.sender.Bind(connID, nickname)
	g.sender.SendTo(connID, protocol.Join(protocol.MsgRegistrationSuccess, g.players.PackLobbyInfo()))
	g.sender.Broadcast(protocol.Join(protocol.MsgPlayerJoined, nickname), nickname)
	slog.Info("player registered", "player", nickname, "lobby_size", g.players.Len())
	return nil
}

// HandleReady marks a player ready and announces it. When the lobby
// becomes startable (everyone ready, at least two players) it
// broadcasts GAME_STARTING and spawns the round loop. A repeated READY
// re-broadcasts the announcement.
func (g *Game) HandleReady(nickname string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateLobby {
		return ErrReadyClosed
	}
	p := g.players.Get(nickname)
	if p == nil {
		return ErrNotRegistered
	}
	p.Ready = true
	g.sender.Broadcast(protocol.Join(protocol.MsgPlayerReady, nickname), nickname)

	if !g.players.CanStart() {
		return nil
	}

	g.state = StateProcessing
	g.sender.Broadcast(protocol.Join(
		protocol.MsgGameStarting,
		strconv.Itoa(g.cfg.RaceLength),
		strconv.Itoa(int(g.cfg.AnswerTime/time.Second)),
		strconv.Itoa(int(g.cfg.PrepareTime/time.Second)),
	))
	slog.Info("match starting", "players", g.players.Len(), "race_length", g.cfg.RaceLength)
	go g.runMatch(g.base)
	return nil
}

// HandleUnready clears a player's ready flag and announces it. Allowed
// only in the lobby.
func (g *Game) HandleUnready(nickname string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateLobby {
		return ErrUnreadyClosed
	}
	p := g.players.Get(nickname)
	if p == nil {
		return ErrNotRegistered
	}
	p.Ready = false
	g.sender.Broadcast(protocol.Join(protocol.MsgPlayerUnready, nickname), nickname)
	return nil
}

// HandleAnswer records a submission for the current round. Accepted
// only while the answer window is open; a repeated ANSWER overwrites
// the earlier one. Submissions from disqualified players are recorded
// but never scored.
func (g *Game) HandleAnswer(nickname string, value int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateWaiting {
		return ErrNotAnswering
	}
	p := g.players.Get(nickname)
	if p == nil {
		return ErrNotRegistered
	}
	p.RecordAnswer(value, time.Now())
	slog.Debug("answer recorded", "player", nickname, "answer", value)
	return nil
}

// HandleDisconnect removes a player in the lobby, or disqualifies them
// mid-match while keeping their record for scoring output. The
// departure is announced to everyone else either way.
func (g *Game) HandleDisconnect(nickname string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateLobby {
		g.players.Remove(nickname)
	} else if p := g.players.Get(nickname); p != nil {
		p.Disqualified = true
		p.ConnID = ""
	}
	g.sender.Broadcast(protocol.Join(protocol.MsgPlayerLeft, nickname), nickname)
	slog.Info("player left", "player", nickname, "state", g.state)
}

// runMatch drives rounds until the game-over predicate holds or ctx is
// cancelled. Each iteration: reset qualified players, sleep the prepare
// window, deal a question, sleep the answer window, then score. The
// locked phases release the mutex via defer, so a panic unwinds with it
// free and the recovery below can reset the game instead of leaving the
// state machine stuck outside the lobby.
func (g *Game) runMatch(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("round loop panicked, resetting game", "panic", r)
			g.mu.Lock()
			defer g.mu.Unlock()
			g.sender.Broadcast(protocol.Join(protocol.MsgGameOver, ""))
			g.resetLocked()
		}
	}()

	for round := 1; ; round++ {
		g.prepareRound()
		if !sleep(ctx, g.cfg.PrepareTime) {
			return
		}

		q := g.dealQuestion(round)
		slog.Info("question dealt", "round", round, "question", q.String())

		// Full answer window; no short-circuit when everyone answered.
		if !sleep(ctx, g.cfg.AnswerTime) {
			return
		}

		if g.finishRound(q) {
			return
		}
	}
}

// prepareRound clears per-round state on every qualified player.
func (g *Game) prepareRound() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.players.Qualified() {
		p.ResetRound()
	}
}

// dealQuestion generates and announces the round's question and opens
// the answer window.
func (g *Game) dealQuestion(round int) Question {
	g.mu.Lock()
	defer g.mu.Unlock()
	q := g.questions.Generate()
	g.sender.Broadcast(protocol.Join(
		protocol.MsgQuestion,
		strconv.Itoa(round),
		strconv.Itoa(q.First),
		q.Op,
		strconv.Itoa(q.Second),
	))
	g.state = StateWaiting
	return q
}

// finishRound closes the answer window and scores the round, reporting
// whether the match ended.
func (g *Game) finishRound(q Question) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateProcessing
	return g.scoreRoundLocked(q)
}

// scoreRoundLocked applies one round's results and reports whether the
// match ended. Players are visited in registration order; disqualified
// ones only observe the correct answer. The fastest correct answerer
// earns one bonus point per incorrect player.
func (g *Game) scoreRoundLocked(q Question) bool {
	correct := strconv.Itoa(q.Answer)
	var fastest *Player
	bonus := 0

	for _, p := range g.players.All() {
		switch {
		case p.Disqualified:
			g.sendToPlayerLocked(p, protocol.Join(protocol.MsgAnswerReveal, correct))
		case p.Answered() && q.Check(*p.Answer):
			p.ApplyDelta(1)
			p.WAStreak = 0
			g.sendToPlayerLocked(p, protocol.Join(protocol.MsgAnswerCorrect, correct))
			if fastest == nil || p.AnswerTime.Before(fastest.AnswerTime) {
				fastest = p
			}
		default:
			p.ApplyDelta(-1)
			p.WAStreak++
			bonus++
			g.sendToPlayerLocked(p, protocol.Join(protocol.MsgAnswerIncorrect, correct))
		}
	}

	if fastest != nil {
		fastest.ApplyDelta(bonus)
		slog.Debug("fastest answer", "player", fastest.Nickname, "bonus", bonus)
	}

	if dropped := g.players.DisqualifyStreakers(); len(dropped) > 0 {
		names := make([]string, len(dropped))
		for i, p := range dropped {
			names[i] = p.Nickname
		}
		g.sender.Broadcast(protocol.MsgDisqualified + protocol.Sep + strings.Join(names, protocol.Sep))
		slog.Info("players disqualified", "players", names)
	}

	fastestNick := ""
	if fastest != nil {
		fastestNick = fastest.Nickname
	}
	g.sender.Broadcast(protocol.Join(protocol.MsgScores, fastestNick, g.players.PackRoundInfo()))

	winner, over := g.winnerLocked()
	if !over {
		return false
	}
	name := ""
	if winner != nil {
		name = winner.Nickname
	}
	g.sender.Broadcast(protocol.Join(protocol.MsgGameOver, name))
	slog.Info("game over", "winner", name)
	g.resetLocked()
	return true
}

// winnerLocked evaluates the game-over predicate: at most one qualified
// player left, or any qualified player at or past the finish line. The
// winner is the qualified player with the greatest position; ties go to
// the earliest answer in the final round, and a player with no answer
// loses the tie.
func (g *Game) winnerLocked() (*Player, bool) {
	qualified := g.players.Qualified()

	over := len(qualified) <= 1
	if !over {
		for _, p := range qualified {
			if p.Position >= g.cfg.RaceLength {
				over = true
				break
			}
		}
	}
	if !over {
		return nil, false
	}

	var winner *Player
	for _, p := range qualified {
		switch {
		case winner == nil:
			winner = p
		case p.Position > winner.Position:
			winner = p
		case p.Position == winner.Position && answeredEarlier(p, winner):
			winner = p
		}
	}
	return winner, true
}

func answeredEarlier(a, b *Player) bool {
	if !a.Answered() {
		return false
	}
	return !b.Answered() || a.AnswerTime.Before(b.AnswerTime)
}

// sendToPlayerLocked unicasts to a player's connection, skipping
// players whose connection is gone.
func (g *Game) sendToPlayerLocked(p *Player, msg string) {
	if p.ConnID == "" {
		return
	}
	g.sender.SendTo(p.ConnID, msg)
}

// resetLocked returns the game to a fresh lobby: new registry, new
// generator, all connection bindings cleared. Clients stay connected
// but must register again.
func (g *Game) resetLocked() {
	g.players = NewPlayerManager(g.cfg.MaxPlayers)
	g.questions = NewGenerator(g.cfg.OperandMin, g.cfg.OperandMax, g.cfg.Seed)
	g.state = StateLobby
	g.sender.ResetBindings()
	slog.Debug("game reset", "state", g.state)
}

// sleep blocks for d, returning false if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
