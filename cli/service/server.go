package service

import (
	"context"
	"net"
	"os"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
)

// StartCLIServer serves the manager over grpc on a unix socket until ctx is done. Request
// metrics are registered on reg when it is not nil.
func StartCLIServer(socketPath string, manager *Manager, reg prometheus.Registerer, ctx context.Context) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return err
	}

	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		return err
	}

	metrics := grpc_prometheus.NewServerMetrics()
	server := grpc.NewServer(
		grpc_middleware.WithStreamServerChain(
			metrics.StreamServerInterceptor(),
			grpc_recovery.StreamServerInterceptor(),
		),
		grpc_middleware.WithUnaryServerChain(
			metrics.UnaryServerInterceptor(),
			grpc_recovery.UnaryServerInterceptor(),
		),
	)

	server.RegisterService(&managerServiceDesc, manager)
	metrics.InitializeMetrics(server)
	if reg != nil {
		if err := reg.Register(metrics); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				_ = lis.Close()
				return errors.Wrap(err, "register manager metrics")
			}
		}
	}

	kill := make(chan struct{})
	defer close(kill)
	go func() {
		select {
		case <-ctx.Done():
			server.GracefulStop()
		case <-kill:
		}
	}()

	if err := server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}

	return nil
}
