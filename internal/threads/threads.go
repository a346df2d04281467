// Package threads reconstructs ordered, threaded conversation views from
// the flat post collections the backend delivers. Building is pure: the
// same thread and directory always produce the same groups, and nothing
// is mutated along the way.
package threads

import (
	"sort"

	"github.com/ita-prog/worryless/internal/models"
)

// Message is a post tagged for rendering: whether the backend generated it
// and whether the current user authored it.
type Message struct {
	models.Post
	IsSystem bool
	Mine     bool
}

// Group is one displayed thread: a root post and its replies.
type Group struct {
	Root    Message
	Replies []Message
}

// Build partitions the thread's posts into root/reply groups and orders
// them for display.
//
// Group order follows PostThread.Order, the server's newest-first id
// sequence, exactly as sent. Roots absent from Order are appended after
// all ordered roots, newest create_at first (ids break ties); nothing is
// dropped. Replies within a group are sorted by create_at ascending, ids
// breaking ties. The order field never mentions replies, so timestamps
// are the only usable key there.
func Build(thread models.PostThread, users map[string]models.User, currentUserID string) []Group {
	position := make(map[string]int, len(thread.Order))
	for i, id := range thread.Order {
		position[id] = i
	}

	var roots []models.Post
	replies := make(map[string][]models.Post)
	for _, post := range thread.Posts {
		if post.IsRoot() {
			roots = append(roots, post)
			continue
		}
		replies[post.RootID] = append(replies[post.RootID], post)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return rootEarlier(position, roots[i], roots[j])
	})

	groups := make([]Group, 0, len(roots))
	for _, root := range roots {
		children := replies[root.ID]
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].CreateAt != children[j].CreateAt {
				return children[i].CreateAt < children[j].CreateAt
			}
			return children[i].ID < children[j].ID
		})

		group := Group{Root: tag(root, users, currentUserID)}
		for _, child := range children {
			group.Replies = append(group.Replies, tag(child, users, currentUserID))
		}
		groups = append(groups, group)
	}
	return groups
}

// rootEarlier reports whether a displays before b. Roots present in the
// order array keep its relative sequence; roots the server left out of it
// go after all ordered roots, newest first.
func rootEarlier(position map[string]int, a, b models.Post) bool {
	pa, inOrderA := position[a.ID]
	pb, inOrderB := position[b.ID]

	switch {
	case inOrderA && inOrderB:
		return pa < pb
	case inOrderA:
		return true
	case inOrderB:
		return false
	default:
		if a.CreateAt != b.CreateAt {
			return a.CreateAt > b.CreateAt
		}
		return a.ID < b.ID
	}
}

// tag cross-references the user directory: a post is system-generated when
// its type carries the system prefix or its author is a bot account.
func tag(post models.Post, users map[string]models.User, currentUserID string) Message {
	author, known := users[post.UserID]
	return Message{
		Post:     post,
		IsSystem: post.IsSystem() || (known && author.IsBot),
		Mine:     post.UserID == currentUserID,
	}
}
