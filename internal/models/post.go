package models

import "strings"

// SystemPostTypePrefix marks backend-generated posts (joins, headers, ...).
const SystemPostTypePrefix = "system_"

// Post is a single message. An empty RootID marks a thread root; a non-empty
// RootID references the root post's id.
type Post struct {
	ID            string   `json:"id"`
	CreateAt      int64    `json:"create_at"`
	UpdateAt      int64    `json:"update_at"`
	EditAt        int64    `json:"edit_at"`
	DeleteAt      int64    `json:"delete_at"`
	UserID        string   `json:"user_id"`
	ChannelID     string   `json:"channel_id"`
	RootID        string   `json:"root_id"`
	OriginalID    string   `json:"original_id"`
	Message       string   `json:"message"`
	Type          string   `json:"type"`
	Hashtags      string   `json:"hashtags"`
	PendingPostID string   `json:"pending_post_id"`
	FileIDs       []string `json:"file_ids,omitempty"`
}

// IsRoot reports whether the post starts a thread.
func (p Post) IsRoot() bool {
	return p.RootID == ""
}

// IsSystem reports whether the post was generated by the backend rather
// than typed by a user.
func (p Post) IsSystem() bool {
	return strings.HasPrefix(p.Type, SystemPostTypePrefix)
}

// PostThread is a channel's fetched message window: the server-declared
// canonical ordering (most recent first) plus the posts it refers to.
// Every id in Order must exist as a key in Posts; Order is the only
// authoritative sequencing, timestamps are not trusted for it.
type PostThread struct {
	Order      []string        `json:"order"`
	Posts      map[string]Post `json:"posts"`
	NextPostID string          `json:"next_post_id"`
	PrevPostID string          `json:"prev_post_id"`
	HasNext    bool            `json:"has_next"`
}
