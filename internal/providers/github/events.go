package github

import (
	"strings"

	gogithub "github.com/google/go-github/v71/github"
	"github.com/rs/zerolog/log"

	"github.com/reactionwatch/internal/reactions"
)

// itemFromEvent extracts the authored item from a public event. Events that
// are not a creation by username are ignored.
func itemFromEvent(ev *gogithub.Event, username string) (reactions.Item, bool) {
	if ev == nil || ev.RawPayload == nil {
		return reactions.Item{}, false
	}

	payload, err := ev.ParsePayload()
	if err != nil {
		log.Debug().Err(err).Str("event_id", ev.GetID()).Str("type", ev.GetType()).Msg("Skipping event with unparseable payload")
		return reactions.Item{}, false
	}

	owner, repo := splitRepo(ev.GetRepo().GetName())

	switch p := payload.(type) {
	case *gogithub.IssueCommentEvent:
		c := p.GetComment()
		if p.GetAction() != "created" || c == nil || !sameLogin(c.GetUser().GetLogin(), username) {
			return reactions.Item{}, false
		}
		return reactions.Item{
			ID:          c.GetID(),
			NodeID:      c.GetNodeID(),
			Kind:        reactions.KindIssueComment,
			Body:        c.GetBody(),
			Title:       p.GetIssue().GetTitle(),
			URL:         c.GetHTMLURL(),
			CreatedAt:   c.GetCreatedAt().Time,
			AuthorLogin: c.GetUser().GetLogin(),
			Owner:       owner,
			Repo:        repo,
			Number:      p.GetIssue().GetNumber(),
		}, true

	case *gogithub.CommitCommentEvent:
		c := p.GetComment()
		if p.GetAction() != "created" || c == nil || !sameLogin(c.GetUser().GetLogin(), username) {
			return reactions.Item{}, false
		}
		return reactions.Item{
			ID:          c.GetID(),
			NodeID:      c.GetNodeID(),
			Kind:        reactions.KindCommitComment,
			Body:        c.GetBody(),
			URL:         c.GetHTMLURL(),
			CreatedAt:   c.GetCreatedAt().Time,
			AuthorLogin: c.GetUser().GetLogin(),
			Owner:       owner,
			Repo:        repo,
		}, true

	case *gogithub.PullRequestReviewCommentEvent:
		c := p.GetComment()
		if p.GetAction() != "created" || c == nil || !sameLogin(c.GetUser().GetLogin(), username) {
			return reactions.Item{}, false
		}
		return reactions.Item{
			ID:          c.GetID(),
			NodeID:      c.GetNodeID(),
			Kind:        reactions.KindPullRequestReviewComment,
			Body:        c.GetBody(),
			Title:       p.GetPullRequest().GetTitle(),
			URL:         c.GetHTMLURL(),
			CreatedAt:   c.GetCreatedAt().Time,
			AuthorLogin: c.GetUser().GetLogin(),
			Owner:       owner,
			Repo:        repo,
			Number:      p.GetPullRequest().GetNumber(),
		}, true

	case *gogithub.IssuesEvent:
		issue := p.GetIssue()
		if p.GetAction() != "opened" || issue == nil || !sameLogin(issue.GetUser().GetLogin(), username) {
			return reactions.Item{}, false
		}
		return reactions.Item{
			ID:          issue.GetID(),
			NodeID:      issue.GetNodeID(),
			Kind:        reactions.KindIssueBody,
			Body:        issue.GetBody(),
			Title:       issue.GetTitle(),
			URL:         issue.GetHTMLURL(),
			CreatedAt:   issue.GetCreatedAt().Time,
			AuthorLogin: issue.GetUser().GetLogin(),
			Owner:       owner,
			Repo:        repo,
			Number:      issue.GetNumber(),
		}, true

	case *gogithub.PullRequestEvent:
		pr := p.GetPullRequest()
		if p.GetAction() != "opened" || pr == nil || !sameLogin(pr.GetUser().GetLogin(), username) {
			return reactions.Item{}, false
		}
		number := pr.GetNumber()
		if number == 0 {
			number = p.GetNumber()
		}
		return reactions.Item{
			ID:          pr.GetID(),
			NodeID:      pr.GetNodeID(),
			Kind:        reactions.KindPullRequestBody,
			Body:        pr.GetBody(),
			Title:       pr.GetTitle(),
			URL:         pr.GetHTMLURL(),
			CreatedAt:   pr.GetCreatedAt().Time,
			AuthorLogin: pr.GetUser().GetLogin(),
			Owner:       owner,
			Repo:        repo,
			Number:      number,
		}, true
	}

	return reactions.Item{}, false
}

// splitRepo splits "owner/name". A malformed value yields the whole string as
// owner and an empty repo.
func splitRepo(full string) (owner, repo string) {
	owner, repo, _ = strings.Cut(full, "/")
	return owner, repo
}

// sameLogin compares logins exactly; the configured username must match the
// API's casing.
func sameLogin(login, username string) bool {
	return login != "" && login == username
}
