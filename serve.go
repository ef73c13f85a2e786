package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/blog-backend/api"
	"github.com/rpupo63/blog-backend/broker"
	"github.com/rpupo63/blog-backend/config"
	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/database"
	"github.com/rpupo63/blog-backend/engagement"
	"github.com/rpupo63/blog-backend/invalidate"
	"github.com/rpupo63/blog-backend/jobs"
	"github.com/rpupo63/blog-backend/services"
	"github.com/rpupo63/blog-backend/session"
	"github.com/rpupo63/blog-backend/uploads"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg map[string]string, migrate bool) error {
	log.Info().Msg("Initializing app...")

	db, store, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	redisClient, err := newRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher := invalidate.NewDispatcher(log.With().Str("component", "dispatcher").Logger())
	gateway := content.NewGateway(store.BlogRepo(), dispatcher)
	queries := content.NewQueries(gateway, buildCache(cfg, redisClient))
	dispatcher.Subscribe("cache", queries.Invalidate)

	announcer := services.AnnouncerFromConfig(cfg, gateway)
	defer announcer.Close()
	dispatcher.Subscribe("announcer", announcer.Handle)
	log.Info().Strs("channels", announcer.Channels()).Msg("announcements configured")

	var relay *broker.AMQP
	if url := config.GetString(cfg, "RABBITMQ_URL", ""); url != "" {
		relay, err = broker.NewAMQP(broker.Config{
			URL:      url,
			Exchange: config.GetString(cfg, "RABBITMQ_EXCHANGE", "blog.invalidations"),
		})
		if err != nil {
			return err
		}
		defer relay.Close()
		dispatcher.Subscribe("broker", relay.Forward)
	}

	provider, err := buildProvider(cfg, store.CredentialRepo(), buildRevocations(redisClient))
	if err != nil {
		return err
	}
	gate := session.NewGate(provider, store.AdminRepo(), session.Options{
		AutoProvision: config.GetBool(cfg, "ADMIN_AUTO_PROVISION", true),
		AllowedEmails: config.GetList(cfg, "ADMIN_ALLOWED_EMAILS"),
	})

	tracker := engagement.NewTracker(gateway, config.GetSeconds(cfg, "VIEW_TIMEOUT_SECONDS", engagement.DefaultViewTimeout))
	defer tracker.Close()

	deps := api.Deps{
		Gateway: gateway,
		Queries: queries,
		Tracker: tracker,
		Gate:    gate,
		Pinger:  store,
	}
	uploader, err := uploads.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if uploader != nil {
		deps.Uploader = uploader
	}

	scheduler := jobs.NewScheduler()
	if err := scheduler.Add("prune-revocations", config.GetString(cfg, "JOB_PRUNE_SCHEDULE", jobs.DefaultPruneSchedule), jobs.PruneRevocations(provider)); err != nil {
		return err
	}
	if err := scheduler.Add("stats", config.GetString(cfg, "JOB_STATS_SCHEDULE", jobs.DefaultStatsSchedule), jobs.LogStats(queries)); err != nil {
		return err
	}

	server, err := api.NewServer(cfg, deps)
	if err != nil {
		return err
	}
	shutdownTimeout := config.GetSeconds(cfg, "SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		errChannel := make(chan error, 1)
		go server.Start(errChannel)

		select {
		case err := <-errChannel:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-gctx.Done():
			log.Info().Msg("Closing server")
			server.ShutdownGracefully(shutdownTimeout)
			return nil
		}
	})
	g.Go(func() error { return gate.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	if relay != nil {
		g.Go(func() error {
			if err := relay.Consume(gctx, queries.Invalidate); err != nil {
				log.Error().Err(err).Msg("broker consumer stopped, remote invalidations disabled")
			}
			return nil
		})
	}

	return g.Wait()
}
