package providers

import (
	"github.com/smallbiznis/giftflow/internal/providers/email"
	"github.com/smallbiznis/giftflow/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
