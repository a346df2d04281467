package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ita-prog/worryless/internal/backend"
	"github.com/ita-prog/worryless/internal/gateway"
	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/session"
)

type fakeInvoker struct {
	mu       sync.Mutex
	handlers map[string]func(args any) (json.RawMessage, error)
	calls    []string
	args     map[string][]any
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		handlers: make(map[string]func(args any) (json.RawMessage, error)),
		args:     make(map[string][]any),
	}
}

func (f *fakeInvoker) on(command string, v any) {
	f.handlers[command] = func(any) (json.RawMessage, error) {
		raw, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		return raw, nil
	}
}

func (f *fakeInvoker) fail(command string, err error) {
	f.handlers[command] = func(any) (json.RawMessage, error) {
		return nil, err
	}
}

func (f *fakeInvoker) Invoke(_ context.Context, command string, args any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	f.args[command] = append(f.args[command], args)
	h := f.handlers[command]
	f.mu.Unlock()
	if h == nil {
		return nil, errors.New("no handler for " + command)
	}
	return h(args)
}

func (f *fakeInvoker) called(command string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == command {
			return true
		}
	}
	return false
}

type countingObserver struct {
	refreshes int
	discards  int
}

func (o *countingObserver) RecordRefresh()      { o.refreshes++ }
func (o *countingObserver) RecordStaleDiscard() { o.discards++ }

func setup(t *testing.T, initial session.PageState) (*Refresher, *fakeInvoker, *session.Store, *countingObserver) {
	t.Helper()
	inv := newFakeInvoker()
	inv.on(backend.CmdGetAllServers, []models.Server{{Name: "local", URL: "http://localhost:8065"}})
	inv.on(backend.CmdGetCurrentServer, models.Server{Name: "local", URL: "http://localhost:8065"})

	store := session.NewStore(initial)
	obs := &countingObserver{}
	gw := gateway.New(inv, logging.Nop(), nil)
	return New(gw, store, logging.Nop(), obs), inv, store, obs
}

func loggedIn(userID string) session.PageState {
	return session.PageState{User: &models.User{ID: userID, Username: "admin"}}
}

func TestRefresh_UnauthenticatedInvokesCallbackAndSkipsSessionFetches(t *testing.T) {
	r, inv, _, _ := setup(t, session.PageState{})

	invoked := false
	r.Refresh(context.Background(), func() { invoked = true })

	assert.True(t, invoked)
	for _, cmd := range []string{backend.CmdMyTeams, backend.CmdMyTeamMembers, backend.CmdMyChannels, backend.CmdUsers, backend.CmdUserUnread} {
		assert.False(t, inv.called(cmd), "%s must not run while logged out", cmd)
	}
	assert.True(t, inv.called(backend.CmdGetAllServers), "server list is fetched regardless")
	assert.True(t, inv.called(backend.CmdGetCurrentServer))
}

func TestRefresh_CallbackPanicIsContained(t *testing.T) {
	r, _, store, _ := setup(t, session.PageState{})

	require.NotPanics(t, func() {
		r.Refresh(context.Background(), func() { panic("redirect blew up") })
	})
	assert.Len(t, store.Read().Servers, 1, "later steps still ran")
}

func TestRefresh_MergesSessionData(t *testing.T) {
	r, inv, _, obs := setup(t, loggedIn("u1"))
	inv.on(backend.CmdMyTeams, []models.Team{{ID: "t1", DisplayName: "Team One"}})
	inv.on(backend.CmdMyTeamMembers, []models.TeamMember{{TeamID: "t1", UserID: "u1"}})
	inv.on(backend.CmdMyChannels, []models.Channel{{ID: "c1", DisplayName: "town-square"}, {ID: "c2"}})
	inv.on(backend.CmdUsers, []models.User{{ID: "u1", Username: "admin"}, {ID: "u2", Username: "bob"}})
	inv.on(backend.CmdUserUnread, models.PostThread{
		Order: []string{"p1"},
		Posts: map[string]models.Post{
			"p1": {ID: "p1", ChannelID: "c1", UserID: "u2", Message: "hi"},
		},
	})

	snap := r.Refresh(context.Background(), nil)

	require.Len(t, snap.Teams, 1)
	assert.Len(t, snap.TeamMembers, 1)
	require.Len(t, snap.Channels, 2)
	require.NotNil(t, snap.ActiveChannel)
	assert.Equal(t, "c1", snap.ActiveChannel.ID, "first channel becomes active")
	assert.Len(t, snap.Users, 2)
	require.Len(t, snap.ActiveThread, 1)
	assert.Equal(t, "p1", snap.ActiveThread[0].Root.ID)
	assert.False(t, snap.ActiveThread[0].Root.Mine)
	assert.Empty(t, snap.Errors)
	assert.Equal(t, 1, obs.refreshes)

	args, ok := inv.args[backend.CmdUserUnread][0].(backend.UserUnreadArgs)
	require.True(t, ok)
	assert.Equal(t, "c1", args.ChannelID)
	assert.Equal(t, "u1", args.UserID)
}

func TestRefresh_FailedStepLeavesFieldUntouched(t *testing.T) {
	initial := loggedIn("u1")
	initial.Channels = []models.Channel{{ID: "old"}}
	r, inv, _, _ := setup(t, initial)
	inv.on(backend.CmdMyTeams, []models.Team{{ID: "t1"}})
	inv.fail(backend.CmdMyChannels, errors.New("channels endpoint down"))
	inv.on(backend.CmdMyTeamMembers, []models.TeamMember{})
	inv.on(backend.CmdUsers, []models.User{})

	snap := r.Refresh(context.Background(), nil)

	require.Len(t, snap.Teams, 1, "teams merged despite channels failure")
	require.Len(t, snap.Channels, 1)
	assert.Equal(t, "old", snap.Channels[0].ID, "failed fetch must not reset the field")
	assert.NotEmpty(t, snap.Errors)
}

func TestRefresh_Idempotent(t *testing.T) {
	r, inv, _, _ := setup(t, loggedIn("u1"))
	inv.on(backend.CmdMyTeams, []models.Team{{ID: "t1"}})
	inv.on(backend.CmdMyTeamMembers, []models.TeamMember{{TeamID: "t1", UserID: "u1"}})
	inv.on(backend.CmdMyChannels, []models.Channel{{ID: "c1"}})
	inv.on(backend.CmdUsers, []models.User{{ID: "u1"}})
	inv.on(backend.CmdUserUnread, models.PostThread{
		Order: []string{"p1"},
		Posts: map[string]models.Post{"p1": {ID: "p1", UserID: "u1"}},
	})

	first := r.Refresh(context.Background(), nil)
	second := r.Refresh(context.Background(), nil)

	assert.Equal(t, first, second)
}

func TestRefresh_LoginThenRefresh(t *testing.T) {
	r, inv, store, _ := setup(t, session.PageState{Server: models.Server{Name: "local", URL: "http://localhost:8065"}})
	inv.on(backend.CmdLogin, models.User{ID: "u1", Username: "admin"})
	inv.on(backend.CmdMyTeams, []models.Team{{ID: "t1"}})
	inv.on(backend.CmdMyTeamMembers, []models.TeamMember{})
	inv.on(backend.CmdMyChannels, []models.Channel{})
	inv.on(backend.CmdUsers, []models.User{})

	res := r.Login(context.Background(), "admin", "admin123!")
	user, err := res.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	require.NotNil(t, store.Read().User)

	snap := r.Refresh(context.Background(), nil)
	require.NotNil(t, snap.User)
	assert.Equal(t, "u1", snap.User.ID)
	assert.True(t, inv.called(backend.CmdMyTeams))
	assert.True(t, inv.called(backend.CmdMyChannels))
}

func TestRefresh_FailedLoginLeavesStoreLoggedOut(t *testing.T) {
	r, inv, store, _ := setup(t, session.PageState{})
	inv.fail(backend.CmdLogin, errors.New("invalid credentials"))

	res := r.Login(context.Background(), "admin", "wrong")
	_, err := res.Unwrap()
	require.Error(t, err)
	assert.Nil(t, store.Read().User)
}

func TestRefresh_StaleGenerationDiscardsMerge(t *testing.T) {
	r, inv, store, obs := setup(t, loggedIn("u1"))
	inv.on(backend.CmdMyTeamMembers, []models.TeamMember{})
	inv.on(backend.CmdMyChannels, []models.Channel{})
	inv.on(backend.CmdUsers, []models.User{})
	// A newer refresh starts while the teams call is in flight.
	inv.handlers[backend.CmdMyTeams] = func(any) (json.RawMessage, error) {
		store.BeginGeneration()
		return json.Marshal([]models.Team{{ID: "t1"}})
	}

	snap := r.Refresh(context.Background(), nil)

	assert.Empty(t, snap.Teams, "superseded merge must be discarded")
	assert.Greater(t, obs.discards, 0)
}

func TestRefresh_UsersPagination(t *testing.T) {
	r, inv, _, _ := setup(t, loggedIn("u1"))
	r.pageSize = 2
	inv.on(backend.CmdMyTeams, []models.Team{})
	inv.on(backend.CmdMyTeamMembers, []models.TeamMember{})
	inv.on(backend.CmdMyChannels, []models.Channel{})
	pages := [][]models.User{
		{{ID: "u1"}, {ID: "u2"}},
		{{ID: "u3"}},
	}
	inv.handlers[backend.CmdUsers] = func(args any) (json.RawMessage, error) {
		a := args.(backend.UsersArgs)
		if a.Page >= len(pages) {
			return json.Marshal([]models.User{})
		}
		return json.Marshal(pages[a.Page])
	}

	snap := r.Refresh(context.Background(), nil)

	assert.Len(t, snap.Users, 3)
	require.Len(t, inv.args[backend.CmdUsers], 2, "short page stops the walk")
	assert.Equal(t, backend.UsersArgs{Page: 0, PerPage: 2}, inv.args[backend.CmdUsers][0])
	assert.Equal(t, backend.UsersArgs{Page: 1, PerPage: 2}, inv.args[backend.CmdUsers][1])
}

func TestSelectChannel_FetchesUnreadThreadOnly(t *testing.T) {
	initial := loggedIn("u1")
	initial.Users = map[string]models.User{"u2": {ID: "u2"}}
	r, inv, _, _ := setup(t, initial)
	inv.on(backend.CmdUserUnread, models.PostThread{
		Order: []string{"p1"},
		Posts: map[string]models.Post{"p1": {ID: "p1", UserID: "u2"}},
	})

	snap := r.SelectChannel(context.Background(), models.Channel{ID: "c9", DisplayName: "backstage"})

	require.NotNil(t, snap.ActiveChannel)
	assert.Equal(t, "c9", snap.ActiveChannel.ID)
	require.Len(t, snap.ActiveThread, 1)
	assert.False(t, inv.called(backend.CmdMyTeams), "lighter variant must not refetch session data")
	assert.False(t, inv.called(backend.CmdMyChannels))
}

func TestSelectChannel_LoggedOutIsNoop(t *testing.T) {
	r, inv, _, _ := setup(t, session.PageState{})

	snap := r.SelectChannel(context.Background(), models.Channel{ID: "c1"})

	assert.Nil(t, snap.ActiveChannel)
	assert.False(t, inv.called(backend.CmdUserUnread))
}

func TestLogout_ClearsSessionKeepsServers(t *testing.T) {
	initial := loggedIn("u1")
	initial.Servers = []models.Server{{Name: "local"}}
	initial.Teams = []models.Team{{ID: "t1"}}
	r, inv, store, _ := setup(t, initial)
	inv.on(backend.CmdLogout, struct{}{})

	res := r.Logout(context.Background())
	_, err := res.Unwrap()
	require.NoError(t, err)

	snap := store.Read()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Teams)
	assert.Len(t, snap.Servers, 1)
}

func TestChangeServer_ResetsSessionAndMergesList(t *testing.T) {
	initial := loggedIn("u1")
	initial.Teams = []models.Team{{ID: "t1"}}
	r, inv, store, _ := setup(t, initial)
	inv.on(backend.CmdChangeServer, models.ServerList{
		Current: models.Server{Name: "work", URL: "https://mm.example.com"},
		List: []models.Server{
			{Name: "local", URL: "http://localhost:8065"},
			{Name: "work", URL: "https://mm.example.com"},
		},
	})

	res := r.ChangeServer(context.Background(), "work")
	list, err := res.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "work", list.Current.Name)

	snap := store.Read()
	assert.Nil(t, snap.User, "switch is a logout-equivalent reset")
	assert.Nil(t, snap.Teams)
	assert.Equal(t, "work", snap.Server.Name)
	assert.Len(t, snap.Servers, 2)

	args, ok := inv.args[backend.CmdChangeServer][0].(backend.ChangeServerArgs)
	require.True(t, ok)
	assert.Equal(t, "work", args.ServerName)
}

func TestAddServer_SelectsNewServer(t *testing.T) {
	r, inv, store, _ := setup(t, session.PageState{
		Server:  models.Server{Name: "local"},
		Servers: []models.Server{{Name: "local"}},
	})
	inv.on(backend.CmdAddServer, models.Server{Name: "work", URL: "https://mm.example.com"})

	res := r.AddServer(context.Background(), "work", "https://mm.example.com")
	server, err := res.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "work", server.Name)

	snap := store.Read()
	assert.Equal(t, "work", snap.Server.Name)
	assert.Len(t, snap.Servers, 2)
}
