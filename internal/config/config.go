package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ArenaServer holds all configuration for the arena server.
type ArenaServer struct {
	// Network
	Addr   string `yaml:"addr"`
	WSAddr string `yaml:"ws_addr"` // empty disables the WebSocket listener

	// Match rules
	MaxPlayers  int `yaml:"max_players"`
	RaceLength  int `yaml:"race_length"`
	AnswerTime  int `yaml:"answer_time"`  // seconds
	PrepareTime int `yaml:"prepare_time"` // seconds

	// Question generation
	OperandMin int    `yaml:"operand_min"`
	OperandMax int    `yaml:"operand_max"`
	Seed       uint64 `yaml:"seed"` // 0 seeds from entropy

	// Write queue / timeouts
	WriteTimeout  int `yaml:"write_timeout"`   // seconds, per-write deadline (default: 5)
	SendQueueSize int `yaml:"send_queue_size"` // per-client outbox capacity (default: 64)

	// Flood protection
	FloodProtection bool    `yaml:"flood_protection"`
	MessageRate     float64 `yaml:"message_rate"` // commands per second
	MessageBurst    int     `yaml:"message_burst"`

	// Logging
	Debug bool `yaml:"debug"`
}

// DefaultArenaServer returns ArenaServer config with sensible defaults.
func DefaultArenaServer() ArenaServer {
	return ArenaServer{
		Addr:            "localhost:54321",
		WSAddr:          "",
		MaxPlayers:      10,
		RaceLength:      10,
		AnswerTime:      30,
		PrepareTime:     10,
		OperandMin:      -10000,
		OperandMax:      10000,
		Seed:            0,
		WriteTimeout:    5,
		SendQueueSize:   64,
		FloodProtection: true,
		MessageRate:     20,
		MessageBurst:    40,
	}
}

// LoadArenaServer loads arena server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadArenaServer(path string) (ArenaServer, error) {
	cfg := DefaultArenaServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the match rules and generator ranges. It runs after
// flag overrides, so bad values from any source are caught here.
func (c ArenaServer) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("max_players must be at least 2, got %d", c.MaxPlayers)
	}
	if c.RaceLength < 1 || c.RaceLength > 25 {
		return fmt.Errorf("race_length must be between 1 and 25, got %d", c.RaceLength)
	}
	if c.AnswerTime < 1 {
		return fmt.Errorf("answer_time must be at least 1 second, got %d", c.AnswerTime)
	}
	if c.PrepareTime < 0 {
		return fmt.Errorf("prepare_time must not be negative, got %d", c.PrepareTime)
	}
	if c.OperandMin >= c.OperandMax {
		return fmt.Errorf("operand range [%d, %d] is empty", c.OperandMin, c.OperandMax)
	}
	return nil
}
