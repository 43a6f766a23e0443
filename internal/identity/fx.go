package identity

import (
	"context"
	"fmt"

	"github.com/smallbiznis/giftflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("identity",
	fx.Provide(NewVerifier),
)

func NewVerifier(cfg config.Config, log *zap.Logger) (Verifier, error) {
	switch cfg.Identity.Mode {
	case "static":
		if cfg.IsProduction() {
			return nil, fmt.Errorf("identity mode %q is not allowed in production", cfg.Identity.Mode)
		}
		log.Warn("using static identity tokens")
		return ParseStaticTokens(cfg.Identity.StaticTokens)
	case "", "firebase":
		return NewFirebaseVerifier(context.Background(), cfg.Identity, log)
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.Identity.Mode)
	}
}
