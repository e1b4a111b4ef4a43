package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/reactionwatch/internal/config"
	"github.com/reactionwatch/internal/state"
)

// StateCommand returns the state command
func StateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect or maintain the seen-reactions state",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print a summary of the persisted state",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of newest entries to list",
						Value:   10,
					},
				},
				Action: runStateShow,
			},
			{
				Name:   "prune",
				Usage:  "Drop the oldest entries beyond state.max_entries and save",
				Action: runStatePrune,
			},
		},
	}
}

func loadStore(c *cli.Context) (*state.Store, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := openStore(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	store.Load(c.Context)
	return store, nil
}

func runStateShow(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	printState(os.Stdout, store, c.Int("limit"), time.Now())
	return nil
}

func printState(w io.Writer, store *state.Store, limit int, now time.Time) {
	snap := store.Snapshot()

	fmt.Fprintf(w, "Entries: %d\n", len(snap.Entries))
	if snap.LastUpdated == nil {
		fmt.Fprintln(w, "Last updated: never")
	} else {
		fmt.Fprintf(w, "Last updated: %s (%s)\n",
			snap.LastUpdated.Format(time.RFC3339),
			humanize.RelTime(*snap.LastUpdated, now, "ago", "from now"))
	}

	if limit <= 0 || len(snap.Entries) == 0 {
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Newest entries:")
	shown := 0
	for i := len(snap.Entries) - 1; i >= 0 && shown < limit; i-- {
		e := snap.Entries[i]
		fmt.Fprintf(w, "   %s  %d reaction(s)\n", e.ItemID, len(e.ReactionIDs))
		shown++
	}
}

func runStatePrune(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	dropped, err := pruneState(c.Context, store)
	if err != nil {
		return err
	}
	fmt.Printf("Dropped %d entries, %d kept\n", dropped, store.Len())
	return nil
}

func pruneState(ctx context.Context, store *state.Store) (int, error) {
	dropped := store.Prune()
	if dropped == 0 {
		return 0, nil
	}
	if err := store.Save(ctx); err != nil {
		return 0, err
	}
	return dropped, nil
}
