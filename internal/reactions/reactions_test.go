package reactions

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type seenSet map[string]map[int64]bool

func (s seenSet) IsNew(itemID string, reactionID int64) bool {
	return !s[itemID][reactionID]
}

func (s seenSet) mark(itemID string, ids ...int64) {
	if s[itemID] == nil {
		s[itemID] = map[int64]bool{}
	}
	for _, id := range ids {
		s[itemID][id] = true
	}
}

func issueComment() Item {
	return Item{ID: 100, Kind: KindIssueComment, AuthorLogin: "alice", Owner: "o", Repo: "r"}
}

func TestContentFromGraphQL(t *testing.T) {
	cases := map[string]Content{
		"THUMBS_UP":   "+1",
		"THUMBS_DOWN": "-1",
		"LAUGH":       "laugh",
		"CONFUSED":    "confused",
		"HEART":       "heart",
		"HOORAY":      "hooray",
		"ROCKET":      "rocket",
		"EYES":        "eyes",
	}

	mapped := map[Content]bool{}
	for in, want := range cases {
		got := ContentFromGraphQL(in)
		require.Equal(t, want, got, in)
		mapped[got] = true
	}
	require.Len(t, mapped, 8, "each GraphQL value maps to a distinct REST value")

	require.Equal(t, ContentThumbsUp, ContentFromGraphQL("PARTY_PARROT"))
	require.Equal(t, ContentThumbsUp, ContentFromGraphQL(""))
	require.Equal(t, ContentThumbsUp, ContentFromGraphQL("heart"), "lowercase is not the GraphQL vocabulary")
}

func TestContentEmoji(t *testing.T) {
	require.Equal(t, "\U0001F680", ContentRocket.Emoji())
	require.Equal(t, "mystery", Content("mystery").Emoji())
}

func TestDiff_NewReactionOnIssueComment(t *testing.T) {
	seen := seenSet{}
	item := issueComment()
	fetched := []Reaction{{ID: 1, AuthorLogin: "bob", Content: ContentHeart}}

	got := Diff(item, fetched, seen)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].Reaction.ID)
	require.Equal(t, item, got[0].Item)
}

func TestDiff_SelfReactionIgnored(t *testing.T) {
	seen := seenSet{}
	item := issueComment()

	got := Diff(item, []Reaction{{ID: 2, AuthorLogin: "alice", Content: ContentRocket}}, seen)
	require.Empty(t, got)

	// Even when unseen, a self reaction never shows up.
	require.True(t, seen.IsNew(item.Key(), 2))
}

func TestDiff_RepeatedReactionNotRenotified(t *testing.T) {
	seen := seenSet{}
	seen.mark("100", 1)

	fetched := []Reaction{
		{ID: 1, AuthorLogin: "bob", Content: ContentHeart},
		{ID: 3, AuthorLogin: "carol", Content: ContentLaugh},
	}
	got := Diff(issueComment(), fetched, seen)
	require.Len(t, got, 1)
	require.Equal(t, int64(3), got[0].Reaction.ID)
}

func TestDiff_IdempotentAfterMarking(t *testing.T) {
	seen := seenSet{}
	item := issueComment()
	fetched := []Reaction{
		{ID: 5, AuthorLogin: "bob", Content: ContentEyes},
		{ID: 6, AuthorLogin: "alice", Content: ContentEyes},
		{ID: 7, AuthorLogin: "dan", Content: ContentHooray},
	}

	first := Diff(item, fetched, seen)
	require.Len(t, first, 2)
	seen.mark(item.Key(), IDs(fetched)...)

	require.Empty(t, Diff(item, fetched, seen))
}

func TestDiff_PreservesInputOrder(t *testing.T) {
	fetched := []Reaction{
		{ID: 9, AuthorLogin: "x"},
		{ID: 4, AuthorLogin: "y"},
		{ID: 7, AuthorLogin: "z"},
	}
	got := Diff(issueComment(), fetched, seenSet{})

	var ids []int64
	for _, r := range got {
		ids = append(ids, r.Reaction.ID)
	}
	if diff := cmp.Diff([]int64{9, 4, 7}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestIDsIncludesSelfReactions(t *testing.T) {
	fetched := []Reaction{{ID: 1, AuthorLogin: "bob"}, {ID: 2, AuthorLogin: "alice"}}
	require.Equal(t, []int64{1, 2}, IDs(fetched))
	require.Empty(t, IDs(nil))
}

func TestAssemble(t *testing.T) {
	require.Nil(t, Assemble(nil))
	require.Nil(t, Assemble([]NewReaction{}))
	require.Equal(t, 0, Assemble(nil).Len())

	records := []NewReaction{
		{Reaction: Reaction{ID: 1}, Item: Item{ID: 10}},
		{Reaction: Reaction{ID: 2}, Item: Item{ID: 20}},
	}
	batch := Assemble(records)
	require.NotNil(t, batch)
	require.Equal(t, 2, batch.Len())
	require.Equal(t, records, batch.Records)

	records[0].Reaction.ID = 99
	require.Equal(t, int64(1), batch.Records[0].Reaction.ID, "batch owns its records")
}

func TestItemTarget(t *testing.T) {
	cases := []struct {
		item Item
		want string
	}{
		{Item{Kind: KindIssueBody, Number: 4}, "your issue #4"},
		{Item{Kind: KindPullRequestBody, Number: 8}, "your PR #8"},
		{Item{Kind: KindIssueComment, Number: 15}, "your comment on #15"},
		{Item{Kind: KindPullRequestReviewComment, Number: 16}, "your comment on #16"},
		{Item{Kind: KindIssueComment}, "your comment"},
		{Item{Kind: KindCommitComment}, "your commit comment"},
		{Item{Kind: KindDiscussion}, "your discussion"},
		{Item{Kind: KindDiscussion, Number: 3}, "your discussion #3"},
		{Item{Kind: KindDiscussionComment, Number: 3}, "your discussion comment"},
		{Item{Kind: "unknown"}, "your comment"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.item.Target(), string(tc.item.Kind))
	}
}

func TestKindInline(t *testing.T) {
	require.True(t, KindDiscussion.Inline())
	require.True(t, KindDiscussionComment.Inline())
	require.False(t, KindIssueComment.Inline())
	require.False(t, KindIssueBody.Inline())
}
