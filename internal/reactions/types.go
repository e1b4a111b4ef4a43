package reactions

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies which GitHub surface an item lives on. It decides the
// endpoint used to list its reactions and how the digest describes it.
type Kind string

const (
	KindIssueComment             Kind = "issue_comment"
	KindCommitComment            Kind = "commit_comment"
	KindPullRequestReviewComment Kind = "pull_request_review_comment"
	KindIssueBody                Kind = "issue_body"
	KindPullRequestBody          Kind = "pr_body"
	KindDiscussion               Kind = "discussion"
	KindDiscussionComment        Kind = "discussion_comment"
)

// Inline reports whether reactions for this kind arrive with the item itself
// (GraphQL) instead of through a separate REST call.
func (k Kind) Inline() bool {
	return k == KindDiscussion || k == KindDiscussionComment
}

// Content is the REST vocabulary for a reaction.
type Content string

const (
	ContentThumbsUp   Content = "+1"
	ContentThumbsDown Content = "-1"
	ContentLaugh      Content = "laugh"
	ContentConfused   Content = "confused"
	ContentHeart      Content = "heart"
	ContentHooray     Content = "hooray"
	ContentRocket     Content = "rocket"
	ContentEyes       Content = "eyes"
)

var emoji = map[Content]string{
	ContentThumbsUp:   "\U0001F44D",
	ContentThumbsDown: "\U0001F44E",
	ContentLaugh:      "\U0001F604",
	ContentConfused:   "\U0001F615",
	ContentHeart:      "❤️",
	ContentHooray:     "\U0001F389",
	ContentRocket:     "\U0001F680",
	ContentEyes:       "\U0001F440",
}

// Emoji returns the glyph for the reaction, or the raw content when GitHub
// sends something we do not know yet.
func (c Content) Emoji() string {
	if e, ok := emoji[c]; ok {
		return e
	}
	return string(c)
}

var graphQLContent = map[string]Content{
	"THUMBS_UP":   ContentThumbsUp,
	"THUMBS_DOWN": ContentThumbsDown,
	"LAUGH":       ContentLaugh,
	"CONFUSED":    ContentConfused,
	"HEART":       ContentHeart,
	"HOORAY":      ContentHooray,
	"ROCKET":      ContentRocket,
	"EYES":        ContentEyes,
}

// ContentFromGraphQL maps a GraphQL ReactionContent enum value to the REST
// vocabulary. Unrecognized values map to "+1" so the reaction is still reported.
func ContentFromGraphQL(v string) Content {
	if c, ok := graphQLContent[v]; ok {
		return c
	}
	return ContentThumbsUp
}

// Reaction is a single emoji reaction, normalized across REST and GraphQL.
type Reaction struct {
	ID          int64     `json:"id"`
	AuthorLogin string    `json:"author_login"`
	Content     Content   `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Item is something the monitored user wrote that can carry reactions.
type Item struct {
	// ID is the numeric id shared by REST and GraphQL (databaseId), never a node id.
	ID          int64     `json:"id"`
	NodeID      string    `json:"node_id,omitempty"`
	Kind        Kind      `json:"kind"`
	Body        string    `json:"body"`
	Title       string    `json:"title,omitempty"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorLogin string    `json:"author_login"`
	Owner       string    `json:"owner"`
	Repo        string    `json:"repo"`
	// Number is the issue, PR or discussion number, zero when unknown.
	Number int `json:"number,omitempty"`

	// Inline holds reactions that came back with the item (discussion kinds).
	Inline []Reaction `json:"inline,omitempty"`
}

// Key is the seen-state key for the item.
func (i Item) Key() string {
	return strconv.FormatInt(i.ID, 10)
}

// Target renders the item the way the digest refers to it.
func (i Item) Target() string {
	switch i.Kind {
	case KindIssueBody:
		return fmt.Sprintf("your issue #%d", i.Number)
	case KindPullRequestBody:
		return fmt.Sprintf("your PR #%d", i.Number)
	case KindIssueComment, KindPullRequestReviewComment:
		if i.Number > 0 {
			return fmt.Sprintf("your comment on #%d", i.Number)
		}
		return "your comment"
	case KindCommitComment:
		return "your commit comment"
	case KindDiscussion:
		if i.Number > 0 {
			return fmt.Sprintf("your discussion #%d", i.Number)
		}
		return "your discussion"
	case KindDiscussionComment:
		return "your discussion comment"
	default:
		return "your comment"
	}
}

// NewReaction pairs a freshly observed reaction with the item it was left on.
type NewReaction struct {
	Reaction Reaction `json:"reaction"`
	Item     Item     `json:"item"`
}
