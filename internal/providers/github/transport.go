package github

import (
	"context"
	"time"

	gogithub "github.com/google/go-github/v71/github"
)

// Transport is everything the gateway and fetcher need from GitHub. Client is
// the production implementation; tests substitute fakes.
type Transport interface {
	// ListUserEvents returns one page of the user's public events. An empty
	// slice means there are no more pages.
	ListUserEvents(ctx context.Context, username string, page, perPage int) ([]*gogithub.Event, error)

	// ListReactions GETs a REST reactions listing. path is relative to the API
	// base URL, e.g. "repos/o/r/issues/comments/1/reactions".
	ListReactions(ctx context.Context, path string) ([]RESTReaction, error)

	// Query runs a GraphQL query and decodes its data object into out.
	Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error
}

// RESTReaction is a reaction as returned by the REST reactions endpoints.
type RESTReaction struct {
	ID        int64     `json:"id"`
	NodeID    string    `json:"node_id"`
	User      *RESTUser `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RESTUser is the subset of a user object we read.
type RESTUser struct {
	Login string `json:"login"`
}
