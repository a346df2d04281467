package models

// Timezone mirrors the backend's per-user timezone settings. Field names
// follow the wire format, which uses camelCase for this object only.
type Timezone struct {
	AutomaticTimezone    string `json:"automaticTimezone"`
	ManualTimezone       string `json:"manualTimezone"`
	UseAutomaticTimezone string `json:"useAutomaticTimezone"`
}

// User is an authenticated principal or a directory entry.
type User struct {
	ID          string   `json:"id"`
	CreateAt    int64    `json:"create_at"`
	UpdateAt    int64    `json:"update_at"`
	DeleteAt    int64    `json:"delete_at"`
	Username    string   `json:"username"`
	AuthData    string   `json:"auth_data"`
	AuthService string   `json:"auth_service"`
	Email       string   `json:"email"`
	Nickname    string   `json:"nickname"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Position    string   `json:"position"`
	Roles       string   `json:"roles"`
	Locale      string   `json:"locale"`
	Timezone    Timezone `json:"timezone"`
	IsBot       bool     `json:"is_bot,omitempty"`
}

// DisplayName prefers the nickname, then first/last name, then the username.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.FirstName != "" || u.LastName != "" {
		name := u.FirstName
		if u.LastName != "" {
			if name != "" {
				name += " "
			}
			name += u.LastName
		}
		return name
	}
	return u.Username
}
