package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/api"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/config"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/logging"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/memstore"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/metrics"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	redisclient "github.com/pabloeorellana/gptunsta-clean-sub000/internal/redis"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().Bool("in-memory", false, "keep all data in memory and seed a demo professional")
	cmd.Flags().String("port", "", "HTTP port (overrides HTTP_PORT)")
	return cmd
}

// stores are the repositories the services run on.
type stores struct {
	appointments  appointment.Repository
	schedule      schedule.Repository
	booked        schedule.BookedTimesReader
	patients      patient.Repository
	notifications notification.Repository
	professionals professional.Repository
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "api-server").Logger()
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("timezone", cfg.Location.String()).
		Bool("in_memory", cfg.InMemory).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		st       stores
		pgPinger api.Pinger
		mem      *memstore.Store
	)

	if cfg.InMemory {
		mem = memstore.New()
		st = stores{
			appointments:  mem.Appointments(),
			schedule:      mem.Schedule(),
			booked:        mem.Appointments(),
			patients:      mem.Patients(),
			notifications: mem.Notifications(),
			professionals: mem.Professionals(),
		}
	} else {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.DBMaxConns, cfg.DBMinConns)
		cancelPg()
		if err != nil {
			return fmt.Errorf("postgres connection: %w", err)
		}
		defer pool.Close()
		logger.Info().Msg("connected to Postgres")

		st = pgStores(pool)
		pgPinger = pool
	}

	var (
		limiter     api.BookingLimiter
		redisPinger api.Pinger
	)
	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		// Redis only throttles public booking attempts.
		logger.Warn().Err(err).Msg("redis unavailable, booking throttle disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		logger.Info().Msg("connected to Redis")
		limiter = redisclient.NewFixedWindowLimiter(rdb, "booking", cfg.BookingLimit, cfg.BookingWindow, logger)
		redisPinger = redisPing(rdb)
	}

	upsertPolicy, err := patient.ParsePolicy(cfg.UpsertPolicy)
	if err != nil {
		return err
	}
	upserter := patient.NewUpserter(upsertPolicy)

	slots := schedule.NewService(st.schedule, st.booked, cfg.Location, nil)
	appointments := appointment.NewService(appointment.Deps{
		Repo:          st.appointments,
		Slots:         slots,
		Professionals: st.professionals,
		Upserter:      upserter,
		Mailer:        newMailer(cfg, logger),
		Location:      cfg.Location,
		Logger:        logger,
	})

	if mem != nil {
		if err := seedDemo(rootCtx, mem, slots, cfg.JWTSecret, logger); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	handler := api.NewRouter(api.RouterConfig{
		Appointments:   appointments,
		Schedule:       slots,
		Patients:       patient.NewService(st.patients, upserter),
		Notifications:  notification.NewService(st.notifications),
		Professionals:  st.professionals,
		Verifier:       auth.NewVerifier(cfg.JWTSecret),
		BookingLimiter: limiter,
		Metrics:        metrics.New(),
		Logger:         logger,
		Postgres:       pgPinger,
		Redis:          redisPinger,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-rootCtx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info().Msg("api-server stopped")
	return nil
}

func pgStores(pool *pgxpool.Pool) stores {
	appointments := appointment.NewPgRepository(pool)
	return stores{
		appointments:  appointments,
		schedule:      schedule.NewPgRepository(pool),
		booked:        appointments,
		patients:      patient.NewPgRepository(pool),
		notifications: notification.NewPgRepository(pool),
		professionals: professional.NewPgRepository(pool),
	}
}

func redisPing(rdb *redis.Client) api.PingFunc {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

func newMailer(cfg config.Config, logger zerolog.Logger) notification.Mailer {
	if !cfg.EmailEnabled() {
		logger.Info().Msg("SMTP_HOST not set, confirmation emails are logged only")
		return notification.NopMailer{Log: logger}
	}
	return notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
