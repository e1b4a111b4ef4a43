package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/reactionwatch/internal/capture"
	"github.com/reactionwatch/internal/config"
	"github.com/reactionwatch/internal/logging"
	"github.com/reactionwatch/internal/metrics"
	"github.com/reactionwatch/internal/monitor"
	"github.com/reactionwatch/internal/notify"
	"github.com/reactionwatch/internal/providers/github"
	"github.com/reactionwatch/internal/state"
)

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Check for new reactions and email a digest",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Print the digest instead of sending it and do not save state",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging for this run",
			},
		},
		Action: runCheck,
	}
}

func runCheck(c *cli.Context) error {
	dryRun := c.Bool("dry-run")

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dryRun {
		cfg.Mail.Transport = notify.TransportLog
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runLog, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Dir:    cfg.Log.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer runLog.Close()

	runID := uuid.NewString()
	logging.WithRunID(runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	m, store, runMetrics, err := buildMonitor(ctx, cfg, monitor.Options{DryRun: dryRun, RunID: runID})
	if err != nil {
		return err
	}
	defer store.Close()

	res, runErr := m.Run(ctx)

	if err := runMetrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Reaction check failed")
		return runErr
	}

	log.Info().
		Int("items", res.Items).
		Int("new", res.NewReactions).
		Bool("notified", res.Notified).
		Bool("saved", res.Saved).
		Dur("duration", res.Duration).
		Str("log_file", runLog.Path()).
		Msg("Done")
	return nil
}

// buildMonitor wires the GitHub client, the seen-state store and the notifier
// described by cfg. The caller closes the returned store.
func buildMonitor(ctx context.Context, cfg *config.Config, opts monitor.Options) (*monitor.Monitor, *state.Store, *metrics.Run, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := github.NewClient(github.ClientConfig{
		Token:             cfg.GitHub.Token,
		APIURL:            cfg.GitHub.APIURL,
		GraphQLURL:        cfg.GitHub.GraphQLURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Burst:             cfg.GitHub.Burst,
		MaxRetries:        cfg.GitHub.MaxRetries,
		Capture:           capture.New(cfg.Capture.Dir),
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to create github client: %w", err)
	}

	gateway := github.NewGateway(client, cfg.GitHub.Username, github.GatewayOptions{
		EventPages:      cfg.Fetch.EventPages,
		PerPage:         cfg.Fetch.PerPage,
		DiscussionLimit: cfg.Fetch.DiscussionLimit,
		SkipDiscussions: cfg.Fetch.SkipDiscussions,
	})

	notifier, err := notify.New(notifierConfig(cfg))
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	runMetrics := metrics.NewRun()
	opts.Concurrency = cfg.Fetch.Concurrency
	opts.Metrics = runMetrics

	return monitor.New(gateway, github.NewFetcher(client), store, notifier, opts), store, runMetrics, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*state.Store, error) {
	backend, err := state.Open(ctx, cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seen-state: %w", err)
	}
	return state.NewStore(backend, state.WithMaxEntries(cfg.State.MaxEntries)), nil
}

func notifierConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		Transport:     cfg.Mail.Transport,
		From:          cfg.Mail.From,
		To:            notify.SplitAddresses(cfg.Mail.To),
		SubjectPrefix: cfg.Mail.SubjectPrefix,
		SMTP: notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Secure:   cfg.SMTP.Secure,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
		},
		ResendAPIKey: cfg.Resend.APIKey,
	}
}
