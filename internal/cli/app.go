package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/refresh"
	"github.com/ita-prog/worryless/internal/session"
)

// App is the interactive shell over the session core. It owns no session
// data itself: every command goes through the Refresher and every render
// reads the snapshot store.
type App struct {
	refresher *refresh.Refresher
	store     *session.Store
	log       logging.Logger
	reader    *bufio.Reader
	out       io.Writer
}

func NewApp(refresher *refresh.Refresher, store *session.Store, log logging.Logger) *App {
	return &App{
		refresher: refresher,
		store:     store,
		log:       log,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}
}

// Run performs the startup refresh and hands control to the REPL until
// the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to worryless (type 'help' for commands)")

	a.refresher.Refresh(ctx, func() {
		fmt.Fprintln(a.out, "Not logged in. Use 'login' to authenticate.")
	})

	go a.watchErrors(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

// watchErrors surfaces failures pushed into the snapshot by background
// merges, so a degraded panel is visible even between commands.
func (a *App) watchErrors(ctx context.Context) {
	updates, cancel := a.store.Subscribe()
	defer cancel()

	seen := 0
	for {
		select {
		case snap, open := <-updates:
			if !open {
				return
			}
			for ; seen < len(snap.Errors); seen++ {
				fmt.Fprintf(a.out, "! %s\n", snap.Errors[seen])
			}
			if len(snap.Errors) < seen {
				seen = len(snap.Errors)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	snap := a.store.Read()
	s := ""
	if snap.User != nil {
		s = snap.User.Username + " "
	}
	if snap.Server.Selected() {
		s = s + "@" + snap.Server.Name
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) isLoggedIn() bool {
	return a.store.Read().LoggedIn()
}

func (a *App) Login(ctx context.Context) error {
	login, err := GetSimpleText(a.reader, "Enter login", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	res := a.refresher.Login(ctx, login, string(password))
	wipe(password)

	user, err := res.Unwrap()
	if err != nil {
		fmt.Fprintf(a.out, "Login failed: %v\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", user.DisplayName())
	a.refresher.Refresh(ctx, nil)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	_, err := a.refresher.Logout(ctx).Unwrap()
	if err != nil {
		fmt.Fprintf(a.out, "Logout failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	snap := a.refresher.Refresh(ctx, func() {
		fmt.Fprintln(a.out, "Not logged in. Use 'login' to authenticate.")
	})
	renderSummary(a.out, snap)
	return nil
}

func (a *App) Servers(_ context.Context) error {
	renderServers(a.out, a.store.Read())
	return nil
}

func (a *App) AddServer(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Server name", a.out)
	if err != nil {
		return err
	}
	url, err := GetSimpleText(a.reader, "Server URL (e.g. https://mm.example.com)", a.out)
	if err != nil {
		return err
	}

	server, err := a.refresher.AddServer(ctx, name, url).Unwrap()
	if err != nil {
		fmt.Fprintf(a.out, "Cannot add server: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Added and selected %s (%s)\n", server.Name, server.URL)
	return nil
}

func (a *App) ChangeServer(ctx context.Context, name string) error {
	list, err := a.refresher.ChangeServer(ctx, name).Unwrap()
	if err != nil {
		fmt.Fprintf(a.out, "Cannot switch server: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Switched to %s. Use 'login' to authenticate.\n", list.Current.Name)
	return nil
}

func (a *App) Channels(_ context.Context) error {
	renderChannels(a.out, a.store.Read())
	return nil
}

// Select activates a channel by its number in the 'channels' listing or
// by name, then fetches its unread thread.
func (a *App) Select(ctx context.Context, arg string) error {
	snap := a.store.Read()
	channel, ok := findChannel(snap.Channels, arg)
	if !ok {
		fmt.Fprintf(a.out, "No such channel: %s\n", arg)
		return fmt.Errorf("no such channel: %s", arg)
	}

	next := a.refresher.SelectChannel(ctx, channel)
	renderThread(a.out, next)
	return nil
}

func (a *App) Thread(_ context.Context) error {
	renderThread(a.out, a.store.Read())
	return nil
}

func (a *App) Users(_ context.Context) error {
	renderUsers(a.out, a.store.Read())
	return nil
}

func findChannel(channels []models.Channel, arg string) (models.Channel, bool) {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(channels) {
		return channels[n-1], true
	}
	for _, c := range channels {
		if c.Name == arg || c.DisplayName == arg {
			return c, true
		}
	}
	return models.Channel{}, false
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
