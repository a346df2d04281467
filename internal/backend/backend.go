// Package backend realizes the command surface the gateway invokes: server
// and token state plus the remote calls that need them. It is the native
// collaborator of the synchronization core; everything above it sees only
// command names, JSON payloads, and errors.
package backend

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/models"
)

// API is the transport surface the backend drives. *mmapi.Client satisfies it.
type API interface {
	Login(ctx context.Context, serverURL, login, password string) (models.User, string, error)
	MyTeams(ctx context.Context, serverURL, token string) ([]models.Team, error)
	MyTeamMembers(ctx context.Context, serverURL, token string) ([]models.TeamMember, error)
	MyChannels(ctx context.Context, serverURL, token string) ([]models.Channel, error)
	ChannelPosts(ctx context.Context, serverURL, token, channelID string) (models.PostThread, error)
	PostThread(ctx context.Context, serverURL, token, postID string) (models.PostThread, error)
	UserUnread(ctx context.Context, serverURL, token, userID, channelID string) (models.PostThread, error)
	Users(ctx context.Context, serverURL, token string, page, perPage int) ([]models.User, error)
}

// Store persists servers and session tokens between runs. *storage.Vault
// satisfies it; a nil Store keeps everything in memory only.
type Store interface {
	Servers(ctx context.Context) ([]models.Server, string, error)
	SaveServers(ctx context.Context, servers []models.Server, current string) error
	Credentials(ctx context.Context) ([]models.ServerCredentials, error)
	StoreCredential(ctx context.Context, cred models.ServerCredentials) error
}

// Backend holds the mutable native-side state: the server list, the selected
// server, and one session token per server URL.
type Backend struct {
	mu      sync.Mutex
	api     API
	store   Store
	log     logging.Logger
	servers []models.Server
	current models.Server
	tokens  map[string]string
}

// New builds a backend seeded with the given server list. The first seed
// server becomes current when the store holds nothing else.
func New(api API, store Store, log logging.Logger, seed []models.Server) *Backend {
	b := &Backend{
		api:    api,
		store:  store,
		log:    log,
		tokens: map[string]string{},
	}
	b.servers = append(b.servers, seed...)
	if len(b.servers) > 0 {
		b.current = b.servers[0]
	}
	return b
}

// Load overlays persisted servers and tokens onto the seeded state.
// A missing or unreadable vault degrades to the seeds.
func (b *Backend) Load(ctx context.Context) {
	if b.store == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	servers, current, err := b.store.Servers(ctx)
	if err != nil {
		b.log.Warn(ctx, "failed to load persisted servers", "error", err)
	} else if len(servers) > 0 {
		b.servers = servers
		b.current = servers[0]
		for _, s := range servers {
			if s.Name == current {
				b.current = s
			}
		}
	}

	creds, err := b.store.Credentials(ctx)
	if err != nil {
		b.log.Warn(ctx, "failed to load persisted credentials", "error", err)
		return
	}
	for _, c := range creds {
		b.tokens[c.URL] = c.AccessToken
	}
}

// currentLocked returns the selected server; the caller holds b.mu.
func (b *Backend) currentLocked() (models.Server, error) {
	if !b.current.Selected() {
		return models.Server{}, ErrServerNotSelected
	}
	return b.current, nil
}

func (b *Backend) session() (models.Server, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	server, err := b.currentLocked()
	if err != nil {
		return models.Server{}, "", err
	}
	token, ok := b.tokens[server.URL]
	if !ok || token == "" {
		return models.Server{}, "", ErrNotLoggedIn
	}
	return server, token, nil
}

func (b *Backend) persistServers(ctx context.Context) {
	if b.store == nil {
		return
	}
	if err := b.store.SaveServers(ctx, b.servers, b.current.Name); err != nil {
		b.log.Warn(ctx, "failed to persist servers", "error", err)
	}
}

func (b *Backend) persistCredential(ctx context.Context, url, token string) {
	if b.store == nil {
		return
	}
	err := b.store.StoreCredential(ctx, models.ServerCredentials{URL: url, AccessToken: token})
	if err != nil {
		b.log.Warn(ctx, "failed to persist credential", "url", url, "error", err)
	}
}

func marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
