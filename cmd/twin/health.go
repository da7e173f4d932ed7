package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/twin.report/internal/serialmux"
)

// Health service names. The empty name reports the process as a whole.
const (
	storeService   = "twin.store"
	gatewayService = "twin.gateway"
)

const healthInterval = 10 * time.Second

type pinger interface {
	PingContext(ctx context.Context) error
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// updateHealth probes the store and records the result. The gateway is
// reported serving while it has at least one subscriber, which is the
// ingest routine.
func updateHealth(ctx context.Context, hs *health.Server, store pinger, m serialmux.SerialMuxInterface) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	storeOK := store.PingContext(pingCtx) == nil

	hs.SetServingStatus(storeService, servingStatus(storeOK))
	hs.SetServingStatus(gatewayService, servingStatus(m.Stats().Subscribers > 0))
	hs.SetServingStatus("", servingStatus(storeOK))
}

// runHealth serves grpc.health.v1 on addr until ctx is done, refreshing the
// statuses every healthInterval.
func runHealth(ctx context.Context, addr string, store pinger, m serialmux.SerialMuxInterface) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	hs := health.NewServer()
	updateHealth(ctx, hs, store, m)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		t := time.NewTicker(healthInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				srv.GracefulStop()
				return
			case <-t.C:
				updateHealth(ctx, hs, store, m)
			}
		}
	}()

	log.Printf("gRPC health server listening on %s", addr)
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
