package models

// Channel is a conversation surface within a team. The ID is unique within
// a server session.
type Channel struct {
	ID            string `json:"id"`
	CreateAt      int64  `json:"create_at"`
	UpdateAt      int64  `json:"update_at"`
	DeleteAt      int64  `json:"delete_at"`
	TeamID        string `json:"team_id"`
	Type          string `json:"type"`
	DisplayName   string `json:"display_name"`
	Name          string `json:"name"`
	Header        string `json:"header"`
	Purpose       string `json:"purpose"`
	LastPostAt    int64  `json:"last_post_at"`
	TotalMsgCount int64  `json:"total_msg_count"`
	CreatorID     string `json:"creator_id"`
}

// Title returns the human-facing channel name.
func (c Channel) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}
