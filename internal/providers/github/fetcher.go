package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/reactionwatch/internal/reactions"
)

const unknownLogin = "unknown"

// ErrMissingNumber is returned for issue and pull request bodies that carry no
// number to look their reactions up by.
var ErrMissingNumber = errors.New("item has no issue or pull request number")

// Fetcher lists the current reactions on an item.
type Fetcher struct {
	transport Transport
}

func NewFetcher(t Transport) *Fetcher {
	return &Fetcher{transport: t}
}

// FetchReactions returns every reaction currently on item. Discussion kinds
// return the reactions fetched with the item and make no request.
func (f *Fetcher) FetchReactions(ctx context.Context, item reactions.Item) ([]reactions.Reaction, error) {
	if item.Kind.Inline() {
		return item.Inline, nil
	}

	path, err := reactionsPath(item)
	if err != nil {
		return nil, err
	}

	raw, err := f.transport.ListReactions(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]reactions.Reaction, 0, len(raw))
	for _, r := range raw {
		login := unknownLogin
		if r.User != nil && r.User.Login != "" {
			login = r.User.Login
		}
		out = append(out, reactions.Reaction{
			ID:          r.ID,
			AuthorLogin: login,
			Content:     reactions.Content(r.Content),
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func reactionsPath(item reactions.Item) (string, error) {
	owner, repo := url.PathEscape(item.Owner), url.PathEscape(item.Repo)

	switch item.Kind {
	case reactions.KindIssueComment:
		return fmt.Sprintf("repos/%s/%s/issues/comments/%d/reactions?per_page=100", owner, repo, item.ID), nil
	case reactions.KindCommitComment:
		return fmt.Sprintf("repos/%s/%s/comments/%d/reactions?per_page=100", owner, repo, item.ID), nil
	case reactions.KindPullRequestReviewComment:
		return fmt.Sprintf("repos/%s/%s/pulls/comments/%d/reactions?per_page=100", owner, repo, item.ID), nil
	case reactions.KindIssueBody, reactions.KindPullRequestBody:
		if item.Number == 0 {
			return "", fmt.Errorf("%s %d: %w", item.Kind, item.ID, ErrMissingNumber)
		}
		return fmt.Sprintf("repos/%s/%s/issues/%d/reactions?per_page=100", owner, repo, item.Number), nil
	default:
		return "", fmt.Errorf("unsupported item kind %q", item.Kind)
	}
}
