package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/session"
	"github.com/ita-prog/worryless/internal/threads"
)

func renderSummary(w io.Writer, snap session.PageState) {
	if snap.User == nil {
		fmt.Fprintln(w, "Logged out.")
		return
	}
	fmt.Fprintf(w, "User: %s, teams: %d, channels: %d, users: %d\n",
		snap.User.DisplayName(), len(snap.Teams), len(snap.Channels), len(snap.Users))
	if snap.ActiveChannel != nil {
		fmt.Fprintf(w, "Active channel: %s\n", snap.ActiveChannel.Title())
	}
}

func renderServers(w io.Writer, snap session.PageState) {
	if len(snap.Servers) == 0 {
		fmt.Fprintln(w, "No servers configured. Use 'addserver'.")
		return
	}
	for _, s := range snap.Servers {
		marker := " "
		if s.Name == snap.Server.Name {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %s\n", marker, s.Name, s.URL)
	}
}

func renderChannels(w io.Writer, snap session.PageState) {
	if len(snap.Channels) == 0 {
		fmt.Fprintln(w, "No channels. Try 'refresh'.")
		return
	}
	for i, c := range snap.Channels {
		marker := " "
		if snap.ActiveChannel != nil && c.ID == snap.ActiveChannel.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %2d. %s\n", marker, i+1, c.Title())
	}
}

func renderThread(w io.Writer, snap session.PageState) {
	if snap.ActiveChannel == nil {
		fmt.Fprintln(w, "No active channel. Use 'select'.")
		return
	}
	fmt.Fprintf(w, "--- %s ---\n", snap.ActiveChannel.Title())
	if len(snap.ActiveThread) == 0 {
		fmt.Fprintln(w, "(no messages)")
		return
	}
	for _, g := range snap.ActiveThread {
		renderMessage(w, g.Root, snap.Users, "")
		for _, reply := range g.Replies {
			renderMessage(w, reply, snap.Users, "    ")
		}
	}
}

func renderMessage(w io.Writer, m threads.Message, users map[string]models.User, indent string) {
	author := m.UserID
	if u, ok := users[m.UserID]; ok {
		author = u.Username
	}
	stamp := time.UnixMilli(m.CreateAt).Format("15:04")
	switch {
	case m.IsSystem:
		fmt.Fprintf(w, "%s%s * %s\n", indent, stamp, m.Message)
	case m.Mine:
		fmt.Fprintf(w, "%s%s <you> %s\n", indent, stamp, m.Message)
	default:
		fmt.Fprintf(w, "%s%s <%s> %s\n", indent, stamp, author, m.Message)
	}
}

func renderUsers(w io.Writer, snap session.PageState) {
	if len(snap.Users) == 0 {
		fmt.Fprintln(w, "User directory is empty. Try 'refresh'.")
		return
	}
	names := make([]string, 0, len(snap.Users))
	for _, u := range snap.Users {
		names = append(names, u.Username)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
}
