package email

import (
	"github.com/smallbiznis/giftflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	emailCfg := cfg.Email
	switch emailCfg.Provider {
	case "smtp":
		return NewSMTP(Config{
			Host:     emailCfg.SMTPHost,
			Port:     emailCfg.SMTPPort,
			Username: emailCfg.SMTPUsername,
			Password: emailCfg.SMTPPassword,
			From:     emailCfg.From,
			FromName: emailCfg.FromName,
		})
	case "sendgrid":
		return NewSendGrid(emailCfg.SendGridAPIKey, emailCfg.From, emailCfg.FromName)
	default:
		log.Info("email delivery disabled", zap.String("provider", emailCfg.Provider))
		return &NoOpProvider{}
	}
}
