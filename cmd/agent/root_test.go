package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/frame-datalogger/pkg/config"
)

func TestShutdownTimeoutCoversInFlightCycle(t *testing.T) {
	cfg := config.NewDefaultConfig()
	// 5s request + 1s interval + 5s margin
	assert.Equal(t, 11*time.Second, shutdownTimeout(cfg))

	cfg.API.Timeout = time.Second
	cfg.Storage.Interval = 100
	assert.Equal(t, minShutdownTimeout, shutdownTimeout(cfg))

	cfg.API.Timeout = 30 * time.Second
	cfg.Storage.Interval = 2000
	assert.Equal(t, 37*time.Second, shutdownTimeout(cfg))
}
