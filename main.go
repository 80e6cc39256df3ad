package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/config"
	"github.com/vsonglab/vtuber-catalog/discovery"
	"github.com/vsonglab/vtuber-catalog/ingest"
	"github.com/vsonglab/vtuber-catalog/rankings"
	"github.com/vsonglab/vtuber-catalog/reconcile"
	"github.com/vsonglab/vtuber-catalog/scheduler"
	"github.com/vsonglab/vtuber-catalog/store"
)

var (
	configFile string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "vtuber-catalog",
		Short: "VTuber channel and song catalog crawler",
		PersistentPreRun: func(*cobra.Command, []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			level := zerolog.InfoLevel
			if debug {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		cycleCommand("discover", "Run one channel discovery cycle", (*scheduler.Scheduler).RunDiscovery),
		cycleCommand("ingest", "Ingest songs for new and existing channels", (*scheduler.Scheduler).RunIngestion),
		cycleCommand("reconcile", "Reconcile the catalog against upstream", (*scheduler.Scheduler).RunReconciliation),
		cycleCommand("views", "Update song view counters", (*scheduler.Scheduler).RunViewCountUpdate),
		cycleCommand("promote", "Promote surviving new songs to existing", (*scheduler.Scheduler).RunStatusPromotion),
		runCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cycleCommand builds a one-shot subcommand around a scheduler entry point.
func cycleCommand(use, short string, run func(*scheduler.Scheduler, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()

			app, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.close()

			return run(app.scheduler, ctx)
		},
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all maintenance cycles on their intervals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.close()

			log.Info().Msg("Scheduler starting")
			return app.scheduler.Start(ctx)
		},
	}
}

// app bundles the wired components with their teardown.
type app struct {
	scheduler *scheduler.Scheduler
	close     func()
}

// buildApp wires stores, the API client and all maintenance components
// from configuration. Without a Postgres DSN everything runs on the
// in-memory store.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	var (
		channels   store.ChannelStore
		songs      store.SongStore
		exclusions store.ExclusionStore
		closeStore = func() {}
	)
	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		channels, songs, exclusions = pg.Channels(), pg.Songs(), pg.Exclusions()
		closeStore = pg.Close
	} else {
		log.Warn().Msg("No Postgres DSN configured, using in-memory store")
		mem := store.NewMemory()
		channels, songs, exclusions = mem.Channels(), mem.Songs(), mem.Exclusions()
	}

	pool, err := client.NewPool(ctx, cfg.APIKeys, cfg.SoftQuotaThreshold)
	if err != nil {
		closeStore()
		return nil, err
	}
	api := client.NewDataClient(pool, cfg.RatePerSecond)

	var sources []discovery.CandidateSource
	if len(cfg.RankingURLs) > 0 {
		sources = append(sources, rankings.NewScraper(cfg.RankingURLs))
	}

	orchestrator := discovery.NewOrchestrator(api, channels, exclusions, discovery.Options{
		Queries:  cfg.Queries,
		MaxPages: cfg.MaxPagesPerQuery,
		Workers:  cfg.Workers,
		Sources:  sources,
		CacheTTL: cfg.CacheTTL,
	})
	ingestor := ingest.NewIngestor(api, channels, songs)
	reconciler := reconcile.NewReconciler(api, channels, songs, exclusions, cfg.Workers)
	views := reconcile.NewViewTracker(api, songs)

	sched := scheduler.New(pool, orchestrator, ingestor, reconciler, views, scheduler.Intervals{
		Discovery: cfg.DiscoveryInterval,
		Ingest:    cfg.IngestInterval,
		Reconcile: cfg.ReconcileInterval,
		Views:     cfg.ViewsInterval,
		Promote:   cfg.PromoteInterval,
	})

	return &app{scheduler: sched, close: closeStore}, nil
}
