package address

import (
	"github.com/smallbiznis/giftflow/internal/address/repository"
	"github.com/smallbiznis/giftflow/internal/address/service"
	"go.uber.org/fx"
)

var Module = fx.Module("address.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
