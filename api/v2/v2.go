package v2

import (
	"context"
	"net/http"
	"time"

	"github.com/flexa/capacity-smart-contracts/api/v2/service"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	tmlog "github.com/tendermint/tendermint/libs/log"
	tmnet "github.com/tendermint/tendermint/libs/net"
)

// Run serves the ledger api on addr until ctx is done.
func Run(ctx context.Context, srvc *service.Service, addr string, gatherer prometheus.Gatherer, logger tmlog.Logger) error {
	_, address := tmnet.ProtocolAndAddress(addr)

	handler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(handlers.CompressHandler(srvc.Handlers(gatherer)))

	server := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting API server", "addr", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
