// Package protocol defines the wire vocabulary of the arena server:
// newline-delimited UTF-8 frames whose fields are separated by ';'.
// Field values must not contain ';' or '\n'; nicknames are constrained
// by regex at registration time, numeric fields are plain base-10.
package protocol

import "strings"

// Sep separates fields within a frame. Delim terminates a frame.
const (
	Sep   = ";"
	Delim = '\n'
)

// Client-to-server commands. Command matching is case-insensitive on
// the wire; ParseCommand uppercases before dispatch.
const (
	CmdRegister = "REGISTER"
	CmdReady    = "READY"
	CmdUnready  = "UNREADY"
	CmdAnswer   = "ANSWER"
)

// Server-to-client message tags.
const (
	MsgRegistrationSuccess = "REGISTRATION_SUCCESS"
	MsgPlayerJoined        = "PLAYER_JOINED"
	MsgPlayerReady         = "PLAYER_READY"
	MsgPlayerUnready       = "PLAYER_UNREADY"
	MsgPlayerLeft          = "PLAYER_LEFT"
	MsgGameStarting        = "GAME_STARTING"
	MsgQuestion            = "QUESTION"
	MsgAnswerCorrect       = "ANSWER_CORRECT"
	MsgAnswerIncorrect     = "ANSWER_INCORRECT"
	// MsgAnswerReveal is the observer view sent to disqualified players
	// instead of ANSWER_CORRECT/ANSWER_INCORRECT.
	MsgAnswerReveal = "ANSWER"
	MsgDisqualified = "DISQUALIFICATION"
	MsgScores       = "SCORES"
	MsgGameOver     = "GAME_OVER"
)

// TagRegistration is the reply stem for REGISTER: the server answers
// with REGISTRATION_SUCCESS or REGISTRATION_FAILURE, not REGISTER_*.
const TagRegistration = "REGISTRATION"

const failureSuffix = "_FAILURE"

// Join composes a frame from its fields. The trailing newline is added
// by the transport layer, not here.
func Join(fields ...string) string {
	return strings.Join(fields, Sep)
}

// Failure composes the typed failure reply for a command:
// "<COMMAND>_FAILURE;<reason>". The reason text is sent verbatim.
func Failure(command, reason string) string {
	return command + failureSuffix + Sep + reason
}

// ParseCommand splits one received line into an uppercased command and
// its arguments. Surrounding whitespace is stripped from the line and
// from every field, so "register; alice " parses the same as
// "REGISTER;alice". An empty line yields an empty command.
func ParseCommand(line string) (command string, args []string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	fields := strings.Split(line, Sep)
	command = strings.ToUpper(strings.TrimSpace(fields[0]))

	if len(fields) == 1 {
		return command, nil
	}
	args = fields[1:]
	for i, a := range args {
		args[i] = strings.TrimSpace(a)
	}
	return command, args
}

// Bool renders a boolean the way lobby info expects it on the wire
// ("True"/"False", capitalized).
func Bool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
