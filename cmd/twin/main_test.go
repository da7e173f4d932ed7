package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/twin.report/internal/config"
	"github.com/banshee-data/twin.report/internal/serialmux"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, "", *configFile)
	assert.Equal(t, "", *listen, "config supplies the listen default")
	assert.Equal(t, ":8081", *grpcListen)
	assert.Equal(t, 0, *baudRate)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", config.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultListen, cfg.GetListen())
	assert.Equal(t, config.DefaultDBPath, cfg.GetDBPath())

	path := filepath.Join(t.TempDir(), "twin.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen":":9000","serial_port":"/dev/ttyUSB0","heatmap_debounce":"50ms"}`), 0o600))

	cfg, err = loadConfig(path, config.Overrides{Listen: ":9100", SerialBaudRate: 9600})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.GetListen(), "flags override the file")
	assert.Equal(t, "/dev/ttyUSB0", cfg.GetSerialPort())
	assert.Equal(t, 9600, cfg.GetSerialBaudRate())

	opts := sessionOptions(cfg)
	assert.Equal(t, 50*time.Millisecond, opts.Debounce)
	assert.Equal(t, config.DefaultRenderInterval, opts.RenderInterval)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"), config.Overrides{})
	assert.Error(t, err)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func status(t *testing.T, hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestUpdateHealth(t *testing.T) {
	hs := health.NewServer()
	m := serialmux.NewDisabledSerialMux()

	updateHealth(context.Background(), hs, fakePinger{}, m)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, storeService))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, gatewayService), "nothing consuming the gateway")

	id, _ := m.Subscribe()
	defer m.Unsubscribe(id)
	updateHealth(context.Background(), hs, fakePinger{err: errors.New("database is locked")}, m)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, storeService))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, gatewayService))
}

func TestRunHealth_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runHealth(ctx, "127.0.0.1:0", fakePinger{}, serialmux.NewDisabledSerialMux()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not stop")
	}

	err := runHealth(context.Background(), "not-an-address", fakePinger{}, serialmux.NewDisabledSerialMux())
	assert.Error(t, err)
}
