package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ita-prog/worryless/internal/models"
)

// Command names accepted by Invoke.
const (
	CmdGetCurrentServer = "get_current_server"
	CmdGetAllServers    = "get_all_servers"
	CmdAddServer        = "add_server"
	CmdChangeServer     = "change_server"
	CmdLogin            = "login"
	CmdLogout           = "logout"
	CmdMyTeams          = "my_teams"
	CmdMyTeamMembers    = "my_team_members"
	CmdMyChannels       = "my_channels"
	CmdChannelPosts     = "channel_posts"
	CmdPostThread       = "post_threads"
	CmdUserUnread       = "user_unread"
	CmdUsers            = "users"
)

// Argument shapes, mirroring the invoke payloads of the command surface.
type (
	AddServerArgs struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	ChangeServerArgs struct {
		ServerName string `json:"serverName"`
	}
	LoginArgs struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	ChannelPostsArgs struct {
		Channel string `json:"channel"`
	}
	PostThreadArgs struct {
		PostID string `json:"postId"`
	}
	UserUnreadArgs struct {
		ChannelID string `json:"channelId"`
		UserID    string `json:"userId"`
	}
	UsersArgs struct {
		Page    int `json:"page"`
		PerPage int `json:"perPage"`
	}
)

// Invoke dispatches one named command. Arguments are decoded from their
// JSON form so callers stay fully decoupled from the concrete arg structs.
func (b *Backend) Invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	switch command {
	case CmdGetCurrentServer:
		return b.getCurrentServer()
	case CmdGetAllServers:
		return b.getAllServers()
	case CmdAddServer:
		var a AddServerArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.addServer(ctx, a)
	case CmdChangeServer:
		var a ChangeServerArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.changeServer(ctx, a)
	case CmdLogin:
		var a LoginArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.login(ctx, a)
	case CmdLogout:
		return b.logout(ctx)
	case CmdMyTeams:
		return b.myTeams(ctx)
	case CmdMyTeamMembers:
		return b.myTeamMembers(ctx)
	case CmdMyChannels:
		return b.myChannels(ctx)
	case CmdChannelPosts:
		var a ChannelPostsArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.channelPosts(ctx, a)
	case CmdPostThread:
		var a PostThreadArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.postThread(ctx, a)
	case CmdUserUnread:
		var a UserUnreadArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.userUnread(ctx, a)
	case CmdUsers:
		var a UsersArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return b.users(ctx, a)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func decodeArgs(args, out any) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode command args: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode command args: %w", err)
	}
	return nil
}

func (b *Backend) getCurrentServer() (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	server, err := b.currentLocked()
	if err != nil {
		return nil, err
	}
	return marshal(server)
}

func (b *Backend) getAllServers() (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return marshal(b.servers)
}

func (b *Backend) addServer(ctx context.Context, a AddServerArgs) (json.RawMessage, error) {
	parsed, err := url.Parse(a.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServerURL, a.URL)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.servers {
		if s.Name == a.Name {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateServer, a.Name)
		}
	}

	server := models.Server{Name: a.Name, URL: a.URL}
	b.servers = append(b.servers, server)
	b.current = server
	b.persistServers(ctx)

	b.log.Info(ctx, "server added", "name", server.Name, "url", server.URL)
	return marshal(server)
}

func (b *Backend) changeServer(ctx context.Context, a ChangeServerArgs) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var found *models.Server
	for i := range b.servers {
		if b.servers[i].Name == a.ServerName {
			found = &b.servers[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownServer, a.ServerName)
	}

	b.current = *found
	b.persistServers(ctx)

	b.log.Info(ctx, "server changed", "name", b.current.Name)
	return marshal(models.ServerList{Current: b.current, List: b.servers})
}

func (b *Backend) login(ctx context.Context, a LoginArgs) (json.RawMessage, error) {
	b.mu.Lock()
	server, err := b.currentLocked()
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	user, token, err := b.api.Login(ctx, server.URL, a.Login, a.Password)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.tokens[server.URL] = token
	b.mu.Unlock()
	b.persistCredential(ctx, server.URL, token)

	b.log.Info(ctx, "user authorized", "user_id", user.ID, "username", user.Username)
	return marshal(user)
}

func (b *Backend) logout(ctx context.Context) (json.RawMessage, error) {
	b.mu.Lock()
	server := b.current
	delete(b.tokens, server.URL)
	b.mu.Unlock()

	if server.Selected() {
		b.persistCredential(ctx, server.URL, "")
	}
	return marshal(struct{}{})
}

func (b *Backend) myTeams(ctx context.Context) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	teams, err := b.api.MyTeams(ctx, server.URL, token)
	if err != nil {
		return nil, err
	}
	return marshal(teams)
}

func (b *Backend) myTeamMembers(ctx context.Context) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	members, err := b.api.MyTeamMembers(ctx, server.URL, token)
	if err != nil {
		return nil, err
	}
	return marshal(members)
}

func (b *Backend) myChannels(ctx context.Context) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	channels, err := b.api.MyChannels(ctx, server.URL, token)
	if err != nil {
		return nil, err
	}
	return marshal(channels)
}

func (b *Backend) channelPosts(ctx context.Context, a ChannelPostsArgs) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	thread, err := b.api.ChannelPosts(ctx, server.URL, token, a.Channel)
	if err != nil {
		return nil, err
	}
	return marshal(thread)
}

func (b *Backend) postThread(ctx context.Context, a PostThreadArgs) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	thread, err := b.api.PostThread(ctx, server.URL, token, a.PostID)
	if err != nil {
		return nil, err
	}
	return marshal(thread)
}

func (b *Backend) userUnread(ctx context.Context, a UserUnreadArgs) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	thread, err := b.api.UserUnread(ctx, server.URL, token, a.UserID, a.ChannelID)
	if err != nil {
		return nil, err
	}
	return marshal(thread)
}

func (b *Backend) users(ctx context.Context, a UsersArgs) (json.RawMessage, error) {
	server, token, err := b.session()
	if err != nil {
		return nil, err
	}
	users, err := b.api.Users(ctx, server.URL, token, a.Page, a.PerPage)
	if err != nil {
		return nil, err
	}
	return marshal(users)
}
