package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

type Provider interface {
	GeneratePackingSlip(ctx context.Context, data PackingSlipData) (io.Reader, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
