// Package monitor runs one notification pass: collect the user's items, fetch
// their reactions, diff against the seen-state, notify and persist.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/reactionwatch/internal/metrics"
	"github.com/reactionwatch/internal/notify"
	"github.com/reactionwatch/internal/reactions"
)

const DefaultConcurrency = 4

// ItemSource lists the items whose reactions are watched.
type ItemSource interface {
	FetchRecentItems(ctx context.Context) ([]reactions.Item, error)
}

// ReactionSource lists the current reactions on one item.
type ReactionSource interface {
	FetchReactions(ctx context.Context, item reactions.Item) ([]reactions.Reaction, error)
}

// SeenStore is the part of state.Store a run needs.
type SeenStore interface {
	reactions.SeenChecker
	Load(ctx context.Context)
	MarkSeen(itemID string, reactionIDs ...int64)
	Save(ctx context.Context) error
	Len() int
}

// Options tunes a Monitor. Concurrency bounds parallel reaction fetches,
// DryRun skips persisting the seen-state and an empty RunID gets a random one.
type Options struct {
	Concurrency int
	DryRun      bool
	Metrics     *metrics.Run
	RunID       string
}

// Result summarizes a run.
type Result struct {
	RunID         string
	Items         int
	Fetched       int
	NewReactions  int
	FetchFailures int
	Notified      bool
	Saved         bool
	Duration      time.Duration
}

// Monitor wires the run's collaborators together.
type Monitor struct {
	items    ItemSource
	fetcher  ReactionSource
	store    SeenStore
	notifier notify.Notifier
	opts     Options
}

func New(items ItemSource, fetcher ReactionSource, store SeenStore, notifier notify.Notifier, opts Options) *Monitor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRun()
	}
	return &Monitor{
		items:    items,
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		opts:     opts,
	}
}

type fetchResult struct {
	reactions []reactions.Reaction
	err       error
}

// Run performs one pass. Errors are returned for the failures that must make
// the process exit non-zero: the first events page, notification delivery and
// state persistence. When notification fails the state is not saved, so the
// next run reports the same reactions again.
func (m *Monitor) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: m.opts.RunID}
	defer func() {
		res.Duration = time.Since(start)
		m.opts.Metrics.Finished(res.Duration)
	}()

	log.Info().Str("run_id", res.RunID).Bool("dry_run", m.opts.DryRun).Msg("Starting reaction check")

	m.store.Load(ctx)

	items, err := m.items.FetchRecentItems(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to fetch recent items: %w", err)
	}
	res.Items = len(items)

	fetched := m.fetchAll(ctx, items)

	var records []reactions.NewReaction
	for i, item := range items {
		m.opts.Metrics.ItemSeen(string(item.Kind))

		r := fetched[i]
		if r.err != nil {
			res.FetchFailures++
			m.opts.Metrics.FetchFailed(string(item.Kind))
			log.Warn().Err(r.err).
				Int64("item_id", item.ID).
				Str("kind", string(item.Kind)).
				Str("phase", "fetch_reactions").
				Msg("Failed to fetch reactions, treating as none")
			continue
		}

		res.Fetched += len(r.reactions)
		records = append(records, reactions.Diff(item, r.reactions, m.store)...)
		m.store.MarkSeen(item.Key(), reactions.IDs(r.reactions)...)
	}
	m.opts.Metrics.ReactionsFetched(res.Fetched)

	batch := reactions.Assemble(records)
	res.NewReactions = batch.Len()
	m.opts.Metrics.NewReactions(res.NewReactions)

	log.Info().
		Int("items", res.Items).
		Int("reactions", res.Fetched).
		Int("new", res.NewReactions).
		Int("failures", res.FetchFailures).
		Msg("Diff complete")

	if batch != nil {
		if err := m.notifier.Notify(ctx, batch); err != nil {
			return res, fmt.Errorf("failed to deliver notification: %w", err)
		}
		res.Notified = true
		m.opts.Metrics.NotificationSent()
	}

	if m.opts.DryRun {
		log.Info().Msg("Dry run, seen-state not saved")
	} else {
		if err := m.store.Save(ctx); err != nil {
			return res, err
		}
		res.Saved = true
	}

	m.opts.Metrics.SeenEntries(m.store.Len())
	m.opts.Metrics.Succeeded(time.Now())
	log.Info().Int("seen_entries", m.store.Len()).Msg("Reaction check finished")
	return res, nil
}

// fetchAll fetches reactions for every item with bounded parallelism. Results
// are indexed like items so diffing stays in item order.
func (m *Monitor) fetchAll(ctx context.Context, items []reactions.Item) []fetchResult {
	results := make([]fetchResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			rs, err := m.fetcher.FetchReactions(gctx, item)
			results[i] = fetchResult{reactions: rs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
