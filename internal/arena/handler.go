package arena

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sxweetlollipop2912/racing-arena/internal/game"
	"github.com/sxweetlollipop2912/racing-arena/internal/protocol"
)

// Failure reasons produced by the connection layer itself. Everything
// game-related comes from the game package; these texts are part of
// the wire protocol too.
var (
	errAlreadyRegistered = errors.New("You have already registered.")
	errInvalidArguments  = errors.New("Invalid arguments.")
)

// Options tunes per-connection behavior shared by all listeners.
type Options struct {
	SendQueueSize int
	WriteTimeout  time.Duration

	// FloodLimit caps inbound commands per second per connection.
	// Zero disables flood protection.
	FloodLimit rate.Limit
	FloodBurst int
}

// Handler drives one connection: it reads newline-delimited commands,
// dispatches them to the game controller and replies with typed
// failures. The same Handler instance serves the TCP and WebSocket
// listeners.
type Handler struct {
	game    *game.Game
	clients *ClientManager
	opts    Options
}

// NewHandler creates a connection handler on top of the controller and
// the client registry.
func NewHandler(g *game.Game, clients *ClientManager, opts Options) *Handler {
	return &Handler{game: g, clients: clients, opts: opts}
}

// Handle owns rwc until the peer disconnects or the read side fails.
// It attaches the connection to the registry, pumps inbound lines
// through the dispatcher and tears everything down on exit. Callers
// are expected to close rwc on ctx cancellation to unblock the read.
func (h *Handler) Handle(ctx context.Context, rwc io.ReadWriteCloser, remote string) {
	c := NewClient(rwc, remote, h.opts.SendQueueSize, h.opts.WriteTimeout)
	h.clients.Attach(c)
	go c.writePump()

	defer func() {
		if nickname := h.clients.Detach(c.ID()); nickname != "" {
			h.game.HandleDisconnect(nickname)
		}
		c.Close()
		slog.Info("connection closed", "remote", remote)
	}()

	var limiter *rate.Limiter
	if h.opts.FloodLimit > 0 {
		limiter = rate.NewLimiter(h.opts.FloodLimit, h.opts.FloodBurst)
	}

	scanner := bufio.NewScanner(rwc)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if limiter != nil && !limiter.Allow() {
			slog.Warn("command flood, disconnecting client", "remote", remote)
			return
		}

		h.dispatch(c, scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Debug("read loop ended", "remote", remote, "error", err)
	}
}

// dispatch routes one command line. Unknown commands are ignored;
// rejected ones get a "<COMMAND>_FAILURE;<reason>" reply on the same
// connection.
func (h *Handler) dispatch(c *Client, line string) {
	cmd, args := protocol.ParseCommand(line)
	if cmd == "" {
		return
	}

	var err error
	switch cmd {
	case protocol.CmdRegister:
		err = h.register(c, args)
	case protocol.CmdReady:
		err = h.ready(c, args)
	case protocol.CmdUnready:
		err = h.unready(c, args)
	case protocol.CmdAnswer:
		err = h.answer(c, args)
	default:
		slog.Debug("unknown command ignored", "remote", c.Remote(), "command", cmd)
		return
	}
	if err == nil {
		return
	}

	// REGISTER replies with the REGISTRATION_* stem.
	tag := cmd
	if cmd == protocol.CmdRegister {
		tag = protocol.TagRegistration
	}
	if serr := c.Send(protocol.Failure(tag, err.Error())); serr != nil {
		slog.Warn("failed to send failure reply", "remote", c.Remote(), "error", serr)
	}
	slog.Debug("command rejected", "remote", c.Remote(), "command", cmd, "reason", err)
}

func (h *Handler) register(c *Client, args []string) error {
	if h.clients.Nickname(c.ID()) != "" {
		return errAlreadyRegistered
	}
	if len(args) != 1 {
		return errInvalidArguments
	}
	return h.game.HandleRegister(c.ID(), args[0])
}

func (h *Handler) ready(c *Client, args []string) error {
	if len(args) != 0 {
		return errInvalidArguments
	}
	nickname := h.clients.Nickname(c.ID())
	if nickname == "" {
		return game.ErrNotRegistered
	}
	return h.game.HandleReady(nickname)
}

func (h *Handler) unready(c *Client, args []string) error {
	if len(args) != 0 {
		return errInvalidArguments
	}
	nickname := h.clients.Nickname(c.ID())
	if nickname == "" {
		return game.ErrNotRegistered
	}
	return h.game.HandleUnready(nickname)
}

func (h *Handler) answer(c *Client, args []string) error {
	// Parse before the bind lookup; "+7" is a valid submission.
	if len(args) != 1 {
		return errInvalidArguments
	}
	value, err := strconv.Atoi(args[0])
	if err != nil {
		return errInvalidArguments
	}
	nickname := h.clients.Nickname(c.ID())
	if nickname == "" {
		return game.ErrNotRegistered
	}
	return h.game.HandleAnswer(nickname, value)
}
