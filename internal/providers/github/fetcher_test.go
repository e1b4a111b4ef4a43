package github

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reactionwatch/internal/reactions"
)

func TestFetchReactions_PathPerKind(t *testing.T) {
	cases := []struct {
		kind   reactions.Kind
		number int
		path   string
	}{
		{reactions.KindIssueComment, 7, "repos/o/r/issues/comments/100/reactions?per_page=100"},
		{reactions.KindCommitComment, 0, "repos/o/r/comments/100/reactions?per_page=100"},
		{reactions.KindPullRequestReviewComment, 12, "repos/o/r/pulls/comments/100/reactions?per_page=100"},
		{reactions.KindIssueBody, 8, "repos/o/r/issues/8/reactions?per_page=100"},
		{reactions.KindPullRequestBody, 12, "repos/o/r/issues/12/reactions?per_page=100"},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			ft := &fakeTransport{}
			item := reactions.Item{ID: 100, Kind: tc.kind, Owner: "o", Repo: "r", Number: tc.number}

			_, err := NewFetcher(ft).FetchReactions(context.Background(), item)
			require.NoError(t, err)
			require.Equal(t, []string{tc.path}, ft.paths)
		})
	}
}

func TestFetchReactions_NormalizesREST(t *testing.T) {
	created := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	path := "repos/o/r/issues/comments/100/reactions?per_page=100"
	ft := &fakeTransport{reactions: map[string][]RESTReaction{
		path: {
			{ID: 1, User: &RESTUser{Login: "bob"}, Content: "heart", CreatedAt: created},
			{ID: 2, User: nil, Content: "rocket", CreatedAt: created},
		},
	}}

	got, err := NewFetcher(ft).FetchReactions(context.Background(), reactions.Item{
		ID: 100, Kind: reactions.KindIssueComment, Owner: "o", Repo: "r",
	})
	require.NoError(t, err)
	require.Equal(t, []reactions.Reaction{
		{ID: 1, AuthorLogin: "bob", Content: reactions.ContentHeart, CreatedAt: created},
		{ID: 2, AuthorLogin: "unknown", Content: reactions.ContentRocket, CreatedAt: created},
	}, got)
}

func TestFetchReactions_MissingNumber(t *testing.T) {
	for _, kind := range []reactions.Kind{reactions.KindIssueBody, reactions.KindPullRequestBody} {
		ft := &fakeTransport{}
		_, err := NewFetcher(ft).FetchReactions(context.Background(), reactions.Item{ID: 1, Kind: kind, Owner: "o", Repo: "r"})
		require.ErrorIs(t, err, ErrMissingNumber)
		require.Empty(t, ft.paths, "no request without a number")
	}
}

func TestFetchReactions_InlineKindsMakeNoRequest(t *testing.T) {
	inline := []reactions.Reaction{{ID: 5, AuthorLogin: "bob", Content: reactions.ContentEyes}}
	for _, kind := range []reactions.Kind{reactions.KindDiscussion, reactions.KindDiscussionComment} {
		ft := &fakeTransport{}
		got, err := NewFetcher(ft).FetchReactions(context.Background(), reactions.Item{ID: 9, Kind: kind, Inline: inline})
		require.NoError(t, err)
		require.Equal(t, inline, got)
		require.Empty(t, ft.paths)
	}
}

func TestFetchReactions_TransportError(t *testing.T) {
	ft := &fakeTransport{reactErr: errors.New("404 Not Found")}
	_, err := NewFetcher(ft).FetchReactions(context.Background(), reactions.Item{
		ID: 100, Kind: reactions.KindIssueComment, Owner: "o", Repo: "r",
	})
	require.Error(t, err)
}

func TestFetchReactions_UnknownKind(t *testing.T) {
	_, err := NewFetcher(&fakeTransport{}).FetchReactions(context.Background(), reactions.Item{ID: 1, Kind: "gist_comment"})
	require.Error(t, err)
}
