package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/address"
	"github.com/smallbiznis/giftflow/internal/authorization"
	"github.com/smallbiznis/giftflow/internal/cache"
	"github.com/smallbiznis/giftflow/internal/catalog"
	"github.com/smallbiznis/giftflow/internal/checkout"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/employee"
	"github.com/smallbiznis/giftflow/internal/geoip"
	"github.com/smallbiznis/giftflow/internal/identity"
	"github.com/smallbiznis/giftflow/internal/ledger"
	"github.com/smallbiznis/giftflow/internal/migration"
	"github.com/smallbiznis/giftflow/internal/observability"
	"github.com/smallbiznis/giftflow/internal/order"
	"github.com/smallbiznis/giftflow/internal/providers"
	"github.com/smallbiznis/giftflow/internal/ratelimit"
	"github.com/smallbiznis/giftflow/internal/reference"
	"github.com/smallbiznis/giftflow/internal/server"
	"github.com/smallbiznis/giftflow/internal/tenant"
	"github.com/smallbiznis/giftflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		// Adapters
		providers.Module,
		ratelimit.Module,
		identity.Module,
		authorization.Module,
		geoip.Module,
		reference.Module,

		// Functional Domains
		catalog.Module,
		tenant.Module,
		employee.Module,
		ledger.Module,
		address.Module,
		order.Module,
		checkout.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.InstanceID)
}
