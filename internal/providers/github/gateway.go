package github

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/reactionwatch/internal/reactions"
)

const (
	DefaultEventPages      = 10
	DefaultPerPage         = 30
	DefaultDiscussionLimit = 50
)

// GatewayOptions bounds how much history the gateway reads.
type GatewayOptions struct {
	EventPages      int
	PerPage         int
	DiscussionLimit int
	// SkipDiscussions disables the GraphQL queries.
	SkipDiscussions bool
}

// Gateway collects the items a user authored recently.
type Gateway struct {
	transport Transport
	username  string
	opts      GatewayOptions
}

func NewGateway(t Transport, username string, opts GatewayOptions) *Gateway {
	if opts.EventPages <= 0 {
		opts.EventPages = DefaultEventPages
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.DiscussionLimit <= 0 {
		opts.DiscussionLimit = DefaultDiscussionLimit
	}
	return &Gateway{transport: t, username: username, opts: opts}
}

// itemSet keeps the first occurrence of each item id, in arrival order.
type itemSet struct {
	seen  map[int64]struct{}
	items []reactions.Item
}

func newItemSet() *itemSet {
	return &itemSet{seen: make(map[int64]struct{})}
}

func (s *itemSet) add(item reactions.Item) bool {
	if _, ok := s.seen[item.ID]; ok {
		return false
	}
	s.seen[item.ID] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// FetchRecentItems returns event items in feed order, then discussions, then
// discussion comments. Only a failure on the first events page is an error.
func (g *Gateway) FetchRecentItems(ctx context.Context) ([]reactions.Item, error) {
	set := newItemSet()

	if err := g.collectEvents(ctx, set); err != nil {
		return nil, err
	}
	eventItems := len(set.items)

	if !g.opts.SkipDiscussions {
		g.collectDiscussions(ctx, set)
	}

	log.Info().
		Str("username", g.username).
		Int("event_items", eventItems).
		Int("discussion_items", len(set.items)-eventItems).
		Msg("Collected recent items")

	return set.items, nil
}

func (g *Gateway) collectEvents(ctx context.Context, set *itemSet) error {
	for page := 1; page <= g.opts.EventPages; page++ {
		events, err := g.transport.ListUserEvents(ctx, g.username, page, g.opts.PerPage)
		if err != nil {
			if page == 1 {
				return fmt.Errorf("failed to fetch events: %w", err)
			}
			log.Warn().Err(err).Int("page", page).Str("phase", "events").Msg("Stopping event pagination early")
			return nil
		}
		if len(events) == 0 {
			return nil
		}

		for _, ev := range events {
			if item, ok := itemFromEvent(ev, g.username); ok {
				set.add(item)
			}
		}
	}
	return nil
}

func (g *Gateway) collectDiscussions(ctx context.Context, set *itemSet) {
	discussions, err := fetchDiscussions(ctx, g.transport, g.username, g.opts.DiscussionLimit)
	if err != nil {
		log.Error().Err(err).Str("phase", "discussions").Msg("Discussion query failed, continuing without discussions")
	}
	for _, item := range discussions {
		set.add(item)
	}

	comments, err := fetchDiscussionComments(ctx, g.transport, g.username, g.opts.DiscussionLimit)
	if err != nil {
		log.Error().Err(err).Str("phase", "discussion_comments").Msg("Discussion comment query failed, continuing without them")
	}
	for _, item := range comments {
		set.add(item)
	}
}
