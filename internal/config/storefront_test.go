package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStorefrontConfig(t *testing.T) {
	assert.NoError(t, validateStorefrontConfig(DefaultStorefrontConfig()))

	cfg := DefaultStorefrontConfig()
	cfg.MaxCASAttempts = 0
	assert.Error(t, validateStorefrontConfig(cfg))

	cfg = DefaultStorefrontConfig()
	cfg.DefaultEmployeePoints = -1
	assert.Error(t, validateStorefrontConfig(cfg))

	cfg = DefaultStorefrontConfig()
	cfg.CheckoutBurst = 0
	assert.Error(t, validateStorefrontConfig(cfg))
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *StorefrontConfigHolder
	assert.Equal(t, DefaultStorefrontConfig(), holder.Get())
}

func TestStaticHolder(t *testing.T) {
	cfg := DefaultStorefrontConfig()
	cfg.DefaultEmployeePoints = 250
	holder := NewStaticStorefrontConfigHolder(cfg)
	assert.Equal(t, int64(250), holder.Get().DefaultEmployeePoints)
}
