package github

import (
	"context"
	"fmt"
	"time"

	"github.com/reactionwatch/internal/reactions"
)

const discussionsQuery = `query($login: String!, $first: Int!) {
  user(login: $login) {
    repositoryDiscussions(first: $first, orderBy: {field: CREATED_AT, direction: DESC}) {
      nodes {
        id
        databaseId
        number
        title
        body
        url
        createdAt
        author { login }
        repository { nameWithOwner }
        reactions(first: 100) {
          nodes { databaseId content createdAt user { login } }
        }
      }
    }
  }
}`

const discussionCommentsQuery = `query($login: String!, $first: Int!) {
  user(login: $login) {
    repositoryDiscussionComments(first: $first) {
      nodes {
        id
        databaseId
        body
        url
        createdAt
        author { login }
        discussion {
          number
          title
          repository { nameWithOwner }
        }
        reactions(first: 100) {
          nodes { databaseId content createdAt user { login } }
        }
      }
    }
  }
}`

type gqlActor struct {
	Login string `json:"login"`
}

type gqlRepository struct {
	NameWithOwner string `json:"nameWithOwner"`
}

type gqlReaction struct {
	DatabaseID int64     `json:"databaseId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	User       *gqlActor `json:"user"`
}

type gqlReactions struct {
	Nodes []*gqlReaction `json:"nodes"`
}

type gqlDiscussion struct {
	ID         string        `json:"id"`
	DatabaseID int64         `json:"databaseId"`
	Number     int           `json:"number"`
	Title      string        `json:"title"`
	Body       string        `json:"body"`
	URL        string        `json:"url"`
	CreatedAt  time.Time     `json:"createdAt"`
	Author     *gqlActor     `json:"author"`
	Repository gqlRepository `json:"repository"`
	Reactions  gqlReactions  `json:"reactions"`
}

type gqlDiscussionComment struct {
	ID         string    `json:"id"`
	DatabaseID int64     `json:"databaseId"`
	Body       string    `json:"body"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	Author     *gqlActor `json:"author"`
	Discussion *struct {
		Number     int           `json:"number"`
		Title      string        `json:"title"`
		Repository gqlRepository `json:"repository"`
	} `json:"discussion"`
	Reactions gqlReactions `json:"reactions"`
}

type discussionsData struct {
	User *struct {
		RepositoryDiscussions struct {
			Nodes []*gqlDiscussion `json:"nodes"`
		} `json:"repositoryDiscussions"`
	} `json:"user"`
}

type discussionCommentsData struct {
	User *struct {
		RepositoryDiscussionComments struct {
			Nodes []*gqlDiscussionComment `json:"nodes"`
		} `json:"repositoryDiscussionComments"`
	} `json:"user"`
}

func fetchDiscussions(ctx context.Context, t Transport, username string, limit int) ([]reactions.Item, error) {
	var data discussionsData
	vars := map[string]interface{}{"login": username, "first": limit}
	if err := t.Query(ctx, discussionsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to query discussions: %w", err)
	}
	if data.User == nil {
		return nil, nil
	}

	var items []reactions.Item
	for _, d := range data.User.RepositoryDiscussions.Nodes {
		if d == nil || d.Author == nil || !sameLogin(d.Author.Login, username) {
			continue
		}
		owner, repo := splitRepo(d.Repository.NameWithOwner)
		items = append(items, reactions.Item{
			ID:          d.DatabaseID,
			NodeID:      d.ID,
			Kind:        reactions.KindDiscussion,
			Body:        d.Body,
			Title:       d.Title,
			URL:         d.URL,
			CreatedAt:   d.CreatedAt,
			AuthorLogin: d.Author.Login,
			Owner:       owner,
			Repo:        repo,
			Number:      d.Number,
			Inline:      convertGraphQLReactions(d.Reactions.Nodes),
		})
	}
	return items, nil
}

func fetchDiscussionComments(ctx context.Context, t Transport, username string, limit int) ([]reactions.Item, error) {
	var data discussionCommentsData
	vars := map[string]interface{}{"login": username, "first": limit}
	if err := t.Query(ctx, discussionCommentsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to query discussion comments: %w", err)
	}
	if data.User == nil {
		return nil, nil
	}

	var items []reactions.Item
	for _, c := range data.User.RepositoryDiscussionComments.Nodes {
		if c == nil || c.Author == nil || !sameLogin(c.Author.Login, username) {
			continue
		}
		item := reactions.Item{
			ID:          c.DatabaseID,
			NodeID:      c.ID,
			Kind:        reactions.KindDiscussionComment,
			Body:        c.Body,
			URL:         c.URL,
			CreatedAt:   c.CreatedAt,
			AuthorLogin: c.Author.Login,
			Inline:      convertGraphQLReactions(c.Reactions.Nodes),
		}
		if c.Discussion != nil {
			item.Owner, item.Repo = splitRepo(c.Discussion.Repository.NameWithOwner)
			item.Number = c.Discussion.Number
			item.Title = c.Discussion.Title
		}
		items = append(items, item)
	}
	return items, nil
}

func convertGraphQLReactions(nodes []*gqlReaction) []reactions.Reaction {
	out := make([]reactions.Reaction, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, reactions.Reaction{
			ID:          n.DatabaseID,
			AuthorLogin: loginOrUnknown(n.User),
			Content:     reactions.ContentFromGraphQL(n.Content),
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}

func loginOrUnknown(a *gqlActor) string {
	if a == nil || a.Login == "" {
		return unknownLogin
	}
	return a.Login
}
