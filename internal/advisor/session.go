package advisor

import "github.com/fieldhand/fieldhand/internal/gemini"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one conversation entry: a role plus ordered content parts.
type Turn struct {
	Role  Role
	Parts []gemini.Part
}

// UserTurn builds a plain-text user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []gemini.Part{{Text: text}}}
}

// ModelTurn builds a plain-text model turn.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []gemini.Part{{Text: text}}}
}

// Session is an ordered, append-only turn log for one chat conversation.
// Turn order is semantically meaningful context for the model: history first,
// newest turn last, always. Sessions live in memory for the duration of a
// conversation; the core never persists them.
type Session struct {
	turns []Turn
}

// Append adds a turn at the end of the log.
func (s *Session) Append(t Turn) {
	s.turns = append(s.turns, t)
}

// Turns returns a copy of the turn log in order.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	return len(s.turns)
}

// contents converts the log to wire contents, preserving order.
func (s *Session) contents() []gemini.Content {
	out := make([]gemini.Content, len(s.turns))
	for i, t := range s.turns {
		out[i] = gemini.Content{Role: string(t.Role), Parts: t.Parts}
	}
	return out
}
