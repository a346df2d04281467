package threads

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ita-prog/worryless/internal/models"
)

func post(id, rootID string, createAt int64) models.Post {
	return models.Post{ID: id, RootID: rootID, CreateAt: createAt}
}

func thread(order []string, posts ...models.Post) models.PostThread {
	m := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		m[p.ID] = p
	}
	return models.PostThread{Order: order, Posts: m}
}

func rootIDs(groups []Group) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.Root.ID)
	}
	return ids
}

func TestBuild_GroupsRepliesUnderRoots(t *testing.T) {
	th := thread([]string{"r2", "r1"},
		post("r1", "", 100),
		post("r2", "", 200),
		post("c1", "r1", 150),
	)

	groups := Build(th, nil, "")

	require.Equal(t, []string{"r2", "r1"}, rootIDs(groups))
	require.Empty(t, groups[0].Replies)
	require.Len(t, groups[1].Replies, 1)
	require.Equal(t, "c1", groups[1].Replies[0].ID)
}

func TestBuild_OrderArrayBeatsTimestamps(t *testing.T) {
	// Timestamps deliberately disagree with the order array; the array wins.
	th := thread([]string{"newest", "middle", "oldest"},
		post("oldest", "", 30),
		post("middle", "", 10),
		post("newest", "", 20),
	)

	groups := Build(th, nil, "")
	require.Equal(t, []string{"newest", "middle", "oldest"}, rootIDs(groups))
}

func TestRootEarlier_OrderedBeforeStray(t *testing.T) {
	order := []string{"a", "b", "c"}
	position := map[string]int{}
	for i, id := range order {
		position[id] = i
	}

	for _, tc := range []struct {
		a, b string
		want bool
	}{
		{"a", "c", true}, // both ordered, array sequence kept
		{"c", "a", false},
		{"a", "x", true}, // ordered root beats any stray
		{"x", "a", false},
	} {
		got := rootEarlier(position, post(tc.a, "", 0), post(tc.b, "", 0))
		require.Equal(t, tc.want, got, "rootEarlier(%s,%s)", tc.a, tc.b)
	}
}

func TestBuild_RepliesSortedByCreateAt(t *testing.T) {
	th := thread([]string{"r1"},
		post("r1", "", 10),
		post("c3", "r1", 30),
		post("c1", "r1", 11),
		post("c2", "r1", 20),
	)

	groups := Build(th, nil, "")
	require.Len(t, groups, 1)

	got := make([]string, 0, 3)
	for _, r := range groups[0].Replies {
		got = append(got, r.ID)
	}
	require.Equal(t, []string{"c1", "c2", "c3"}, got)
}

func TestBuild_RepliesTieBrokenByID(t *testing.T) {
	th := thread([]string{"r1"},
		post("r1", "", 10),
		post("cb", "r1", 20),
		post("ca", "r1", 20),
	)

	groups := Build(th, nil, "")
	require.Equal(t, "ca", groups[0].Replies[0].ID)
	require.Equal(t, "cb", groups[0].Replies[1].ID)
}

func TestBuild_RootsMissingFromOrderAppendAtEnd(t *testing.T) {
	th := thread([]string{"r2", "r1"},
		post("r1", "", 100),
		post("r2", "", 200),
		post("stray-old", "", 50),
		post("stray-new", "", 300),
	)

	groups := Build(th, nil, "")
	require.Equal(t, []string{"r2", "r1", "stray-new", "stray-old"}, rootIDs(groups))
}

func TestBuild_ReplyNeverBecomesTopLevel(t *testing.T) {
	th := thread([]string{"r2", "r1"},
		post("r1", "", 100),
		post("r2", "", 200),
		post("c1", "r1", 150),
	)

	groups := Build(th, nil, "")
	for _, g := range groups {
		require.NotEqual(t, "c1", g.Root.ID)
	}
}

func TestBuild_TagsSystemAndMine(t *testing.T) {
	th := thread([]string{"r3", "r2", "r1"},
		models.Post{ID: "r1", CreateAt: 1, UserID: "u1", Message: "hi"},
		models.Post{ID: "r2", CreateAt: 2, UserID: "u2", Type: "system_join_channel"},
		models.Post{ID: "r3", CreateAt: 3, UserID: "bot1", Message: "beep"},
	)
	users := map[string]models.User{
		"u1":   {ID: "u1", Username: "admin"},
		"u2":   {ID: "u2", Username: "carol"},
		"bot1": {ID: "bot1", Username: "reminder", IsBot: true},
	}

	groups := Build(th, users, "u1")
	require.Equal(t, []string{"r3", "r2", "r1"}, rootIDs(groups))

	byID := map[string]Message{}
	for _, g := range groups {
		byID[g.Root.ID] = g.Root
	}

	require.False(t, byID["r1"].IsSystem)
	require.True(t, byID["r1"].Mine)
	require.True(t, byID["r2"].IsSystem, "system type prefix")
	require.True(t, byID["r3"].IsSystem, "bot author")
	require.False(t, byID["r3"].Mine)
}

func TestBuild_Idempotent(t *testing.T) {
	th := thread([]string{"r2", "r1"},
		post("r1", "", 100),
		post("r2", "", 200),
		post("c1", "r1", 150),
	)

	first := Build(th, nil, "")
	second := Build(th, nil, "")
	require.Equal(t, first, second)
}

func TestBuild_EmptyThread(t *testing.T) {
	groups := Build(models.PostThread{}, nil, "")
	require.Empty(t, groups)
}
