package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/misqat/backend/internal/auth"
	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/internal/handler"
	"github.com/misqat/backend/internal/notification"
	"github.com/misqat/backend/internal/user"
	"github.com/misqat/backend/pkg/config"
	"github.com/misqat/backend/pkg/email"
	"github.com/misqat/backend/pkg/httpserver"
	"github.com/misqat/backend/pkg/logger"
	"github.com/misqat/backend/pkg/mongo"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg, logger.WithService("misqat-api"))

	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)

	client, err := mongo.New(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	users := user.NewMongoStore(client.Database(mongoCfg.Database))
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	var emailCfg email.Config
	config.MustLoad(&emailCfg)

	var sender email.Sender
	if emailCfg.Configured() {
		sender, err = email.NewPostmarkSender(emailCfg)
		if err != nil {
			return err
		}
	} else {
		log.Warn("postmark tokens absent, emails will only be logged")
		sender = email.NewDevSender(log)
	}

	notifier := notification.NewService(sender, notification.WithLogger(log))
	defer notifier.Wait()

	var stripeCfg billing.StripeConfig
	config.MustLoad(&stripeCfg)
	stripeProvider, err := billing.NewStripeProvider(stripeCfg, log)
	if err != nil {
		return err
	}

	var paypalCfg billing.PayPalConfig
	config.MustLoad(&paypalCfg)
	paypalProvider, err := billing.NewPayPalProvider(ctx, paypalCfg, log)
	if err != nil {
		return err
	}

	var plan billing.Plan
	config.MustLoad(&plan)

	billingSvc := billing.NewService(users, stripeProvider, paypalProvider,
		billing.WithNotifier(notifier),
		billing.WithLogger(log),
		billing.WithPlan(plan),
	)

	var authCfg auth.Config
	config.MustLoad(&authCfg)
	authSvc, err := auth.NewService(users, authCfg)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth:         authSvc,
		Billing:      billingSvc,
		Users:        users,
		Log:          log,
		Healthchecks: []func(context.Context) error{mongo.Healthcheck(client)},
	})

	var serverCfg httpserver.Config
	config.MustLoad(&serverCfg)

	return httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log)).Run(ctx, router)
}
