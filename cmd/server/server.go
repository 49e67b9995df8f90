package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/tuition-lms/api"
	"github.com/irsalhamdi/tuition-lms/api/background"
	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/core/user"
	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/gateway"
	"github.com/irsalhamdi/tuition-lms/outbox"
	"github.com/irsalhamdi/tuition-lms/rate"
	"github.com/irsalhamdi/tuition-lms/sequence"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

var build = "develop"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "TUITION"
	cfg := config.Config{
		Version: conf.Version{
			Build: build,
			Desc:  "tuition class enrollment service",
		},
	}

	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	logger.Infof("startup config:\n%s", out)

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()

	if err := database.StatusCheck(ctx, db); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	iss, err := newIssuer(cfg, db)
	if err != nil {
		return err
	}

	if cfg.Auth.AdminEmail != "" {
		if err := user.EnsureAdmin(ctx, db, iss, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrapping admin: %w", err)
		}
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionLifetime

	bg := background.New(logger)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	limiter := rate.NewLimiter(cfg.RateLimit.Burst, cfg.RateLimit.Expiry, rate.Every(cfg.RateLimit.Interval))
	if err := bg.Add(func() { limiter.Run(bgCtx, cfg.RateLimit.Sweep) }); err != nil {
		return fmt.Errorf("starting rate limiter eviction: %w", err)
	}

	apiCfg := api.APIConfig{
		CorsOrigin: cfg.Cors.Origin,
		Log:        logger,
		DB:         db,
		Session:    sessionManager,
		Issuer:     iss,
		Limiter:    limiter,
	}

	if cfg.Payhere.MerchantID != "" {
		apiCfg.Payhere = gateway.NewPayhere(cfg.Payhere)
	}

	if cfg.Stripe.APISecret != "" {
		strp := &stripecl.API{}
		strp.Init(cfg.Stripe.APISecret, nil)
		apiCfg.Stripe = gateway.NewStripe(strp, cfg.Stripe)
	}

	if cfg.Paypal.ClientID != "" {
		pp, err := paypal.NewClient(
			cfg.Paypal.ClientID,
			cfg.Paypal.Secret,
			cfg.Paypal.URL,
		)
		if err != nil {
			return fmt.Errorf("failed to build the paypal client: %w", err)
		}

		if _, err = pp.GetAccessToken(ctx); err != nil {
			return fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
		apiCfg.Paypal = gateway.NewPaypal(pp, cfg.Paypal)
	}

	if cfg.Kafka.Enabled {
		w := outbox.NewWriter(cfg.Kafka, logger)
		defer w.Close()

		relay := outbox.NewRelay(db, w, logger, cfg.Kafka)
		if err := bg.Add(func() { relay.Run(bgCtx) }); err != nil {
			return fmt.Errorf("starting outbox relay: %w", err)
		}
	}

	mux := api.APIMux(apiCfg)

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		stopBackground()
		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}

func newIssuer(cfg config.Config, db *sqlx.DB) (*sequence.Issuer, error) {
	switch cfg.Sequence.Backend {
	case "postgres":
		return sequence.NewIssuer(sequence.NewPostgres(db), cfg.Sequence.Prefix, cfg.Sequence.Width), nil

	case "redis":
		client, err := sequence.DialRedis(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return sequence.NewIssuer(sequence.NewRedis(client, cfg.Redis.KeyPrefix), cfg.Sequence.Prefix, cfg.Sequence.Width), nil
	}
	return nil, fmt.Errorf("unknown sequence backend %q", cfg.Sequence.Backend)
}
