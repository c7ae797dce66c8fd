package main

import (
	"context"
	"time"

	"github.com/collabhub/collabhub-server/notification-service/channels"
	"github.com/collabhub/collabhub-server/notification-service/config"
	"github.com/collabhub/collabhub-server/notification-service/controllers"
	"github.com/collabhub/collabhub-server/notification-service/delivery"
	"github.com/collabhub/collabhub-server/notification-service/repos"
	"github.com/collabhub/collabhub-server/server-go"
	"github.com/collabhub/collabhub-server/utils-go"
	"github.com/gofiber/fiber/v2"
	mail "github.com/xhit/go-simple-mail/v2"
	"go.uber.org/fx"
)

func main() {

	opts := []fx.Option{}
	opts = append(opts, provideOptions()...)
	opts = append(opts, fx.Invoke(run))

	app := fx.New(opts...)

	app.Run()
}

func provideOptions() []fx.Option {
	return []fx.Option{
		fx.Invoke(utils.ConfigureLogger),
		fx.Provide(config.Parse),
		fx.Invoke(func(config *config.Config) {
			utils.InitSharedConstants(*config.JwtParsedPublicKey)
		}),
		fx.Provide(func(config *config.Config) utils.BaseConfig {
			return config
		}),
		fx.Provide(config.ProvidePostgres),
		fx.Provide(config.ProvideRedis),
		fx.Provide(config.ProvideSmtp),
		fx.Provide(server.CreateServer),
		fx.Provide(utils.GetDefaultRouter),
		fx.Provide(repos.NewNotificationRepo),
		fx.Provide(repos.NewSettingsRepo),
		fx.Provide(repos.NewMembershipRepo),
		fx.Provide(repos.NewUserRepo),
		fx.Provide(provideDeliveryService),
		fx.Invoke(controllers.RegisterSettingsController),
		fx.Invoke(controllers.RegisterNotificationsController),
	}
}

func provideDeliveryService(cfg *config.Config, notifications *repos.NotificationRepo, settings *repos.SettingsRepo, members *repos.MembershipRepo, users *repos.UserRepo, smtpClient *mail.SMTPClient) *delivery.Service {
	var notifier delivery.Notifier
	if smtpClient != nil {
		notifier = channels.NewEmailChannel(smtpClient, users, cfg.EmailConfig.SmtpUser)
	}

	return delivery.NewService(notifications, settings, members, notifier)
}

func run(app *fiber.App, config *config.Config, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			errChan := make(chan error)

			go func() {
				errChan <- app.Listen(config.Port)
			}()

			select {
			case err := <-errChan:
				return err
			case <-time.After(100 * time.Millisecond):
				return nil
			}
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}
