// Package refresh rebuilds the session snapshot from the backend. It is
// the only component that sequences gateway calls; the order of the
// steps matters because later steps read fields merged by earlier ones.
package refresh

import (
	"context"
	"fmt"

	"github.com/ita-prog/worryless/internal/backend"
	"github.com/ita-prog/worryless/internal/gateway"
	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/result"
	"github.com/ita-prog/worryless/internal/session"
	"github.com/ita-prog/worryless/internal/threads"
)

// DefaultPageSize is the user-directory page size.
const DefaultPageSize = 100

// Observer receives refresh lifecycle events. Implemented by
// metrics.Collector; a nil observer disables recording.
type Observer interface {
	RecordRefresh()
	RecordStaleDiscard()
}

// Refresher drives the snapshot store from backend command results.
// Every step is best-effort: a failed fetch logs, leaves its snapshot
// field untouched and never aborts the remaining steps.
type Refresher struct {
	gw       *gateway.Gateway
	store    *session.Store
	log      logging.Logger
	obs      Observer
	pageSize int
}

// New returns a Refresher. obs may be nil.
func New(gw *gateway.Gateway, store *session.Store, log logging.Logger, obs Observer) *Refresher {
	return &Refresher{gw: gw, store: store, log: log, obs: obs, pageSize: DefaultPageSize}
}

// SetPageSize overrides the user-directory page size. Values below one
// are ignored.
func (r *Refresher) SetPageSize(n int) {
	if n > 0 {
		r.pageSize = n
	}
}

// step is one named fetch-and-merge unit of the session sequence.
// Steps run strictly in declaration order; run receives the generation
// the whole refresh was started under.
type step struct {
	name string
	run  func(ctx context.Context, gen uint64)
}

func (r *Refresher) sessionSteps() []step {
	return []step{
		{"teams", r.fetchTeams},
		{"team_members", r.fetchTeamMembers},
		{"channels", r.fetchChannels},      // selects the first channel as active
		{"users", r.fetchUsers},            // directory consumed by active_thread tagging
		{"active_thread", r.fetchActiveThread},
	}
}

// Refresh rebuilds the snapshot. With no authenticated user it invokes
// onUnauthenticated (panics from the callback are logged, never
// propagated) and skips the session steps. The server list and current
// server are fetched regardless. Returns the final snapshot.
//
// Each invocation takes a fresh generation from the store; merges from
// a run that has been superseded are discarded rather than applied.
func (r *Refresher) Refresh(ctx context.Context, onUnauthenticated func()) session.PageState {
	gen := r.store.BeginGeneration()
	if r.obs != nil {
		r.obs.RecordRefresh()
	}

	snap := r.store.Read()
	if !snap.LoggedIn() {
		r.notifyUnauthenticated(ctx, onUnauthenticated)
	} else {
		for _, st := range r.sessionSteps() {
			st.run(ctx, gen)
		}
	}

	r.fetchServerList(ctx, gen)
	r.fetchCurrentServer(ctx, gen)

	return r.store.Read()
}

func (r *Refresher) notifyUnauthenticated(ctx context.Context, cb func()) {
	if cb == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(ctx, "unauthenticated callback panicked", "panic", p)
		}
	}()
	cb()
}

// mergeStep applies one Result to the store. On Ok the apply function
// rewrites only the fields it touches; on Err the failure is logged and
// surfaced through the snapshot's error list, the data fields stay as
// they were. In both cases a stale generation discards the write.
func mergeStep[T any](r *Refresher, ctx context.Context, gen uint64, name string, res result.Result[T], apply func(session.PageState, T) session.PageState) {
	res.Fold(
		func(err error) {
			r.log.Error(ctx, "refresh step failed", "step", name, "error", err)
			r.applyOrDiscard(ctx, gen, name, func(s session.PageState) session.PageState {
				return s.PushError(fmt.Sprintf("%s: %v", name, err))
			})
		},
		func(v T) {
			r.applyOrDiscard(ctx, gen, name, func(s session.PageState) session.PageState {
				return apply(s, v)
			})
		},
	)
}

func (r *Refresher) applyOrDiscard(ctx context.Context, gen uint64, name string, fn func(session.PageState) session.PageState) {
	if r.store.UpdateIf(gen, fn) {
		return
	}
	r.log.Info(ctx, "discarding stale refresh result", "step", name, "generation", gen)
	if r.obs != nil {
		r.obs.RecordStaleDiscard()
	}
}

func (r *Refresher) fetchTeams(ctx context.Context, gen uint64) {
	res := gateway.Call(ctx, r.gw, backend.CmdMyTeams, nil, gateway.JSON[[]models.Team]())
	mergeStep(r, ctx, gen, "teams", res, func(s session.PageState, teams []models.Team) session.PageState {
		s.Teams = teams
		return s
	})
}

func (r *Refresher) fetchTeamMembers(ctx context.Context, gen uint64) {
	res := gateway.Call(ctx, r.gw, backend.CmdMyTeamMembers, nil, gateway.JSON[[]models.TeamMember]())
	mergeStep(r, ctx, gen, "team_members", res, func(s session.PageState, members []models.TeamMember) session.PageState {
		s.TeamMembers = members
		return s
	})
}

func (r *Refresher) fetchChannels(ctx context.Context, gen uint64) {
	res := gateway.Call(ctx, r.gw, backend.CmdMyChannels, nil, gateway.JSON[[]models.Channel]())
	mergeStep(r, ctx, gen, "channels", res, func(s session.PageState, channels []models.Channel) session.PageState {
		s.Channels = channels
		if s.ActiveChannel == nil && len(channels) > 0 {
			first := channels[0]
			s.ActiveChannel = &first
		}
		return s
	})
}

// fetchUsers walks the paginated user directory until a short page and
// merges the accumulated id-keyed map in one step. A mid-walk failure
// keeps the previous directory rather than merging a truncated one.
func (r *Refresher) fetchUsers(ctx context.Context, gen uint64) {
	users := make(map[string]models.User)
	for page := 0; ; page++ {
		res := gateway.Call(ctx, r.gw, backend.CmdUsers,
			backend.UsersArgs{Page: page, PerPage: r.pageSize},
			gateway.JSON[[]models.User]())
		batch, err := res.Unwrap()
		if err != nil {
			mergeStep(r, ctx, gen, "users", result.Err[map[string]models.User](err), nil)
			return
		}
		for _, u := range batch {
			users[u.ID] = u
		}
		if len(batch) < r.pageSize {
			break
		}
	}
	mergeStep(r, ctx, gen, "users", result.Ok(users), func(s session.PageState, dir map[string]models.User) session.PageState {
		s.Users = dir
		return s
	})
}

func (r *Refresher) fetchActiveThread(ctx context.Context, gen uint64) {
	snap := r.store.Read()
	if snap.ActiveChannel == nil || snap.User == nil {
		return
	}
	r.fetchThreadFor(ctx, gen, snap.ActiveChannel.ID, snap.User.ID)
}

func (r *Refresher) fetchThreadFor(ctx context.Context, gen uint64, channelID, userID string) {
	res := gateway.Call(ctx, r.gw, backend.CmdUserUnread,
		backend.UserUnreadArgs{ChannelID: channelID, UserID: userID},
		gateway.JSON[models.PostThread]())
	mergeStep(r, ctx, gen, "active_thread", res, func(s session.PageState, thread models.PostThread) session.PageState {
		current := ""
		if s.User != nil {
			current = s.User.ID
		}
		s.ActiveThread = threads.Build(thread, s.Users, current)
		return s
	})
}

func (r *Refresher) fetchServerList(ctx context.Context, gen uint64) {
	res := gateway.Call(ctx, r.gw, backend.CmdGetAllServers, nil, gateway.JSON[[]models.Server]())
	mergeStep(r, ctx, gen, "server_list", res, func(s session.PageState, servers []models.Server) session.PageState {
		s.Servers = servers
		return s
	})
}

func (r *Refresher) fetchCurrentServer(ctx context.Context, gen uint64) {
	res := gateway.Call(ctx, r.gw, backend.CmdGetCurrentServer, nil, gateway.JSON[models.Server]())
	mergeStep(r, ctx, gen, "current_server", res, func(s session.PageState, server models.Server) session.PageState {
		s.Server = server
		return s
	})
}

// SelectChannel is the lighter refresh variant used when the user picks
// a channel: it activates the channel and rebuilds only the unread
// thread, leaving teams/channels/users untouched.
func (r *Refresher) SelectChannel(ctx context.Context, channel models.Channel) session.PageState {
	gen := r.store.BeginGeneration()

	snap := r.store.Read()
	if snap.User == nil {
		return snap
	}

	r.applyOrDiscard(ctx, gen, "select_channel", func(s session.PageState) session.PageState {
		ch := channel
		s.ActiveChannel = &ch
		s.ActiveThread = nil
		return s
	})
	r.fetchThreadFor(ctx, gen, channel.ID, snap.User.ID)

	return r.store.Read()
}

// Login authenticates against the current server and merges the user
// into the snapshot. Callers follow a successful login with Refresh.
func (r *Refresher) Login(ctx context.Context, login, password string) result.Result[models.User] {
	res := gateway.Call(ctx, r.gw, backend.CmdLogin,
		backend.LoginArgs{Login: login, Password: password},
		gateway.JSON[models.User]())
	res.Fold(
		func(error) {},
		func(user models.User) {
			r.store.Update(func(s session.PageState) session.PageState {
				u := user
				s.User = &u
				return s
			})
		},
	)
	return res
}

// Logout drops the backend session and clears every user-scoped
// snapshot field, keeping the server list and selection.
func (r *Refresher) Logout(ctx context.Context) result.Result[struct{}] {
	res := gateway.Call(ctx, r.gw, backend.CmdLogout, nil, gateway.Discard)
	r.store.Update(session.PageState.ClearSession)
	return res
}

// AddServer registers a new backend server, which also becomes the
// selected one.
func (r *Refresher) AddServer(ctx context.Context, name, url string) result.Result[models.Server] {
	res := gateway.Call(ctx, r.gw, backend.CmdAddServer,
		backend.AddServerArgs{Name: name, URL: url},
		gateway.JSON[models.Server]())
	res.Fold(
		func(error) {},
		func(server models.Server) {
			r.store.Update(func(s session.PageState) session.PageState {
				s = s.ClearSession()
				s.Server = server
				s.Servers = append(append([]models.Server(nil), s.Servers...), server)
				return s
			})
		},
	)
	return res
}

// ChangeServer switches the selected server. A switch is a
// logout-equivalent reset: all user-scoped fields are cleared before the
// new server's list and selection are merged, and the caller's next
// Refresh will walk the unauthenticated path until a fresh login.
func (r *Refresher) ChangeServer(ctx context.Context, serverName string) result.Result[models.ServerList] {
	res := gateway.Call(ctx, r.gw, backend.CmdChangeServer,
		backend.ChangeServerArgs{ServerName: serverName},
		gateway.JSON[models.ServerList]())
	res.Fold(
		func(error) {},
		func(list models.ServerList) {
			r.store.Update(func(s session.PageState) session.PageState {
				s = s.ClearSession()
				s.Server = list.Current
				s.Servers = list.List
				return s
			})
		},
	)
	return res
}
