package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"nickname wins", User{Nickname: "nick", FirstName: "Ann", Username: "ann"}, "nick"},
		{"full name", User{FirstName: "Ann", LastName: "Lee", Username: "ann"}, "Ann Lee"},
		{"first name only", User{FirstName: "Ann", Username: "ann"}, "Ann"},
		{"last name only", User{LastName: "Lee", Username: "ann"}, "Lee"},
		{"username fallback", User{Username: "ann"}, "ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestChannel_Title(t *testing.T) {
	assert.Equal(t, "Town Square", Channel{Name: "town-square", DisplayName: "Town Square"}.Title())
	assert.Equal(t, "town-square", Channel{Name: "town-square"}.Title())
}

func TestPost_RootAndSystem(t *testing.T) {
	assert.True(t, Post{ID: "p1"}.IsRoot())
	assert.False(t, Post{ID: "p2", RootID: "p1"}.IsRoot())

	assert.True(t, Post{Type: "system_join_channel"}.IsSystem())
	assert.False(t, Post{Type: ""}.IsSystem())
	assert.False(t, Post{Type: "custom_sticker"}.IsSystem())
}

func TestServer_Selected(t *testing.T) {
	assert.True(t, Server{Name: "local", URL: "http://localhost:8065"}.Selected())
	assert.False(t, Server{Name: "local"}.Selected())
}

func TestAPIError_Error(t *testing.T) {
	withMessage := &APIError{ID: "api.user.login.invalid", Message: "Invalid credentials", StatusCode: 401}
	assert.Equal(t, "Invalid credentials (status 401)", withMessage.Error())

	idOnly := &APIError{ID: "api.user.login.invalid", StatusCode: 401}
	assert.Equal(t, "api.user.login.invalid (status 401)", idOnly.Error())
}

func TestPostThread_WireShape(t *testing.T) {
	raw := []byte(`{
		"order": ["p2", "p1"],
		"posts": {
			"p1": {"id": "p1", "channel_id": "c1", "message": "first"},
			"p2": {"id": "p2", "channel_id": "c1", "root_id": "p1", "message": "second"}
		},
		"next_post_id": "",
		"prev_post_id": "p0",
		"has_next": true
	}`)

	var thread PostThread
	require.NoError(t, json.Unmarshal(raw, &thread))

	assert.Equal(t, []string{"p2", "p1"}, thread.Order)
	require.Contains(t, thread.Posts, "p2")
	assert.Equal(t, "p1", thread.Posts["p2"].RootID)
	assert.True(t, thread.HasNext)
	assert.Equal(t, "p0", thread.PrevPostID)
}
