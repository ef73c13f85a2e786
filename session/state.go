// Package session decides what a caller may do: it signs callers in through
// the identity provider and resolves their admin capability.
package session

import (
	"fmt"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Authorized
	Unauthorized
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unauthenticated"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for candidate := Unauthenticated; candidate <= Unauthorized; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

var transitions = map[State][]State{
	Unauthenticated: {Authenticating, Authenticated},
	Authenticating:  {Authenticated, Unauthenticated},
	Authenticated:   {Authorized, Unauthorized, Unauthenticated},
	Authorized:      {Unauthenticated},
	Unauthorized:    {Unauthenticated},
}

// Session is the gate's view of one caller.
type Session struct {
	State       State  `json:"state"`
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Token       string `json:"-"`
}

// IsAdmin reports whether the session may manage content.
func (s *Session) IsAdmin() bool {
	return s.State == Authorized
}

func (s *Session) transition(to State) error {
	for _, allowed := range transitions[s.State] {
		if allowed == to {
			s.State = to
			return nil
		}
	}
	return fmt.Errorf("session: invalid transition %s -> %s", s.State, to)
}

// reset returns the session to Unauthenticated, forgetting the identity.
func (s *Session) reset() {
	*s = Session{State: Unauthenticated}
}
