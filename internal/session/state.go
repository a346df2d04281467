// Package session holds the single shared snapshot of all transient
// session data and the store that guards it.
package session

import (
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/threads"
)

// PageState is the complete in-memory session state at a point in time.
// A nil User means logged out. The server list and current server survive
// login-state changes; everything user-scoped is rebuilt by refresh.
//
// Values held in slices and maps are read-only views: update functions
// replace fields wholesale and must never mutate them in place.
type PageState struct {
	Server        models.Server
	Servers       []models.Server
	User          *models.User
	Teams         []models.Team
	TeamMembers   []models.TeamMember
	Channels      []models.Channel
	Users         map[string]models.User
	ActiveChannel *models.Channel
	ActiveThread  []threads.Group
	Errors        []string
}

// ClearSession returns the state with every user-scoped field reset,
// keeping the server list and selection. Used on logout and server switch.
func (s PageState) ClearSession() PageState {
	s.User = nil
	s.Teams = nil
	s.TeamMembers = nil
	s.Channels = nil
	s.Users = nil
	s.ActiveChannel = nil
	s.ActiveThread = nil
	s.Errors = nil
	return s
}

// LoggedIn reports whether the snapshot carries an authenticated user.
func (s PageState) LoggedIn() bool {
	return s.User != nil
}

// PushError appends a user-visible failure note, keeping only the most
// recent few so the list cannot grow without bound.
func (s PageState) PushError(msg string) PageState {
	const keep = 10
	errs := append(append([]string(nil), s.Errors...), msg)
	if len(errs) > keep {
		errs = errs[len(errs)-keep:]
	}
	s.Errors = errs
	return s
}
