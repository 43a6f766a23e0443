package migration

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if strings.EqualFold(strings.TrimSpace(cfg.Database.Type), "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		if err := seed.EnsureCountries(conn); err != nil {
			return err
		}
		if cfg.Bootstrap.DemoStore && !cfg.IsProduction() {
			log.Info("seeding demo storefront", zap.String("slug", seed.DemoSlug))
			return seed.EnsureDemoStore(conn, node)
		}
		return nil
	}),
)
