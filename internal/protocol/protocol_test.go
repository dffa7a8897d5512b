package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantCmd  string
		wantArgs []string
	}{
		{"register", "REGISTER;alice", "REGISTER", []string{"alice"}},
		{"lowercase command", "register;alice", "REGISTER", []string{"alice"}},
		{"mixed case command", "Ready", "READY", nil},
		{"no args", "READY", "READY", nil},
		{"answer with sign", "ANSWER;+7", "ANSWER", []string{"+7"}},
		{"negative answer", "ANSWER;-12", "ANSWER", []string{"-12"}},
		{"padded fields", "  register ; alice ", "REGISTER", []string{"alice"}},
		{"crlf stripped", "READY\r", "READY", nil},
		{"empty line", "", "", nil},
		{"whitespace only", "   ", "", nil},
		{"extra fields kept", "REGISTER;a;b", "REGISTER", []string{"a", "b"}},
		{"empty arg preserved", "REGISTER;", "REGISTER", []string{""}},
		{"unknown command", "FNORD;1;2", "FNORD", []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseCommand(tt.line)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "QUESTION;1;3;+;4", Join(MsgQuestion, "1", "3", "+", "4"))
	assert.Equal(t, "GAME_OVER;", Join(MsgGameOver, ""))
	assert.Equal(t, "READY", Join(CmdReady))
}

func TestFailure(t *testing.T) {
	assert.Equal(t, "REGISTRATION_FAILURE;Lobby is full.", Failure(TagRegistration, "Lobby is full."))
	assert.Equal(t, "ANSWER_FAILURE;Not in answering phase.", Failure(CmdAnswer, "Not in answering phase."))
}

func TestBool(t *testing.T) {
	assert.Equal(t, "True", Bool(true))
	assert.Equal(t, "False", Bool(false))
}
