package game

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sxweetlollipop2912/racing-arena/internal/protocol"
)

var nicknameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,10}$`)

// ValidNickname reports whether a nickname is acceptable: 1-10
// characters from [A-Za-z0-9_].
func ValidNickname(nickname string) bool {
	return nicknameRe.MatchString(nickname)
}

// Player описывает одного зарегистрированного участника гонки.
// Все поля принадлежат контроллеру игры и меняются только под его mutex.
type Player struct {
	Nickname     string
	Position     int
	DiffPoints   int
	WAStreak     int
	Ready        bool
	Disqualified bool

	// ConnID addresses the player's connection in the client registry.
	// Cleared when the player disconnects mid-match.
	ConnID string

	// Answer is the submission for the current round, nil if none yet.
	// AnswerTime is when it was recorded.
	Answer     *int
	AnswerTime time.Time
}

// ResetRound очищает состояние раунда: ответ, его время и накопленный diff.
func (p *Player) ResetRound() {
	p.Answer = nil
	p.AnswerTime = time.Time{}
	p.DiffPoints = 0
}

// RecordAnswer stores a submission, overwriting any earlier one in the
// same round.
func (p *Player) RecordAnswer(value int, at time.Time) {
	v := value
	p.Answer = &v
	p.AnswerTime = at
}

// ApplyDelta moves the player by delta, clamping the position at 1.
// DiffPoints accumulates the actual movement, so after a round it holds
// the net position change since the round started (a fall clamped at
// position 1 contributes 0, a correct answer plus fastest bonus
// contributes 2).
func (p *Player) ApplyDelta(delta int) {
	old := p.Position
	p.Position = max(1, p.Position+delta)
	p.DiffPoints += p.Position - old
}

// Answered reports whether the player submitted an answer this round.
func (p *Player) Answered() bool {
	return p.Answer != nil
}

// PlayerManager holds the lobby's players keyed by nickname, preserving
// registration order for lobby/round info packing. Not safe for
// concurrent use on its own; the game controller serializes access.
type PlayerManager struct {
	maxPlayers int
	byNickname map[string]*Player
	order      []*Player
}

// NewPlayerManager создаёт пустой реестр с лимитом maxPlayers.
func NewPlayerManager(maxPlayers int) *PlayerManager {
	return &PlayerManager{
		maxPlayers: maxPlayers,
		byNickname: make(map[string]*Player, maxPlayers),
		order:      make([]*Player, 0, maxPlayers),
	}
}

// Register validates and inserts a fresh player. Capacity is checked
// before nickname validity, matching the reason a client sees when both
// would apply.
func (pm *PlayerManager) Register(nickname string) (*Player, error) {
	if len(pm.order) >= pm.maxPlayers {
		return nil, ErrLobbyFull
	}
	if !ValidNickname(nickname) {
		return nil, ErrInvalidNickname
	}
	if _, exists := pm.byNickname[nickname]; exists {
		return nil, ErrNicknameTaken
	}

	p := &Player{Nickname: nickname, Position: 1}
	pm.byNickname[nickname] = p
	pm.order = append(pm.order, p)
	return p, nil
}

// Remove deletes a player; only valid while the game is in the lobby.
func (pm *PlayerManager) Remove(nickname string) {
	if _, exists := pm.byNickname[nickname]; !exists {
		return
	}
	delete(pm.byNickname, nickname)
	for i, p := range pm.order {
		if p.Nickname == nickname {
			pm.order = append(pm.order[:i], pm.order[i+1:]...)
			break
		}
	}
}

// Get возвращает игрока по нику, nil если не найден.
func (pm *PlayerManager) Get(nickname string) *Player {
	return pm.byNickname[nickname]
}

// Len возвращает количество зарегистрированных игроков.
func (pm *PlayerManager) Len() int {
	return len(pm.order)
}

// All returns every registered player in registration order. The
// returned slice is the registry's own; callers must not mutate it.
func (pm *PlayerManager) All() []*Player {
	return pm.order
}

// Qualified returns the players still in the race, in registration
// order.
func (pm *PlayerManager) Qualified() []*Player {
	q := make([]*Player, 0, len(pm.order))
	for _, p := range pm.order {
		if !p.Disqualified {
			q = append(q, p)
		}
	}
	return q
}

// DisqualifyStreakers marks every qualified player whose wrong-answer
// streak reached 3 and returns them in registration order.
func (pm *PlayerManager) DisqualifyStreakers() []*Player {
	var out []*Player
	for _, p := range pm.order {
		if !p.Disqualified && p.WAStreak >= 3 {
			p.Disqualified = true
			out = append(out, p)
		}
	}
	return out
}

// CanStart reports whether a match may begin: at least two players, at
// most the cap, and everyone ready.
func (pm *PlayerManager) CanStart() bool {
	if len(pm.order) < 2 || len(pm.order) > pm.maxPlayers {
		return false
	}
	for _, p := range pm.order {
		if !p.Ready {
			return false
		}
	}
	return true
}

// PackLobbyInfo renders "<nick>,<True|False>;..." in registration
// order.
func (pm *PlayerManager) PackLobbyInfo() string {
	parts := make([]string, len(pm.order))
	for i, p := range pm.order {
		parts[i] = p.Nickname + "," + protocol.Bool(p.Ready)
	}
	return strings.Join(parts, protocol.Sep)
}

// PackRoundInfo renders "<nick>,<diff>,<position>;..." in registration
// order.
func (pm *PlayerManager) PackRoundInfo() string {
	parts := make([]string, len(pm.order))
	for i, p := range pm.order {
		parts[i] = p.Nickname + "," + strconv.Itoa(p.DiffPoints) + "," + strconv.Itoa(p.Position)
	}
	return strings.Join(parts, protocol.Sep)
}
