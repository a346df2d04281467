// Package models defines the entities exchanged with a Mattermost-compatible
// collaboration backend and the shapes held in the session snapshot.
package models

// Server is a reachable backend instance. Name is unique within the
// configured server list; an empty URL means no server is selected.
type Server struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Selected reports whether the server points at an actual backend.
func (s Server) Selected() bool {
	return s.URL != ""
}

// ServerList is the result of a server switch: the newly selected server
// plus the full configured list.
type ServerList struct {
	Current Server   `json:"current"`
	List    []Server `json:"list"`
}

// Credentials is a login/password pair entered by the user.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ServerCredentials is a persisted session token for one server.
type ServerCredentials struct {
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
}
