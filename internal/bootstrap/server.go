package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/aircheckin/config"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported for check-in.
const ServiceName = "aircheckin.CheckIn"

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	conn       *grpc.ClientConn
	httpServer *http.Server
}

// Run starts the gRPC (health, reflection) and HTTP (REST, /healthz via the
// gateway, /metrics, swagger) servers and blocks until ctx is canceled or a
// server fails.
func Run(ctx context.Context, cfg *config.Config, api http.Handler, log *slog.Logger) error {
	s, err := NewServers(cfg, api)
	if err != nil {
		return err
	}
	defer s.conn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() { errCh <- s.httpServer.ListenAndServe() }()
	log.Info("servers started", "http", cfg.HTTP.Address, "grpc", cfg.GRPC.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		s.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewServers(cfg *config.Config, api http.Handler) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC %s: %w", cfg.GRPC.Address, err)
	}
	gw := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))

	return &Servers{
		grpcServer: grpcSrv,
		health:     hs,
		conn:       conn,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewHandler(cfg.HTTP, gw, api),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// NewHandler routes infrastructure paths ahead of the REST api.
func NewHandler(cfg config.HTTPConfig, gateway http.Handler, api http.Handler) http.Handler {
	handler := http.NewServeMux()
	handler.Handle("/healthz", gateway)
	handler.Handle("/metrics", promhttp.Handler())

	if cfg.SwaggerDir != "" {
		fs := http.FileServer(http.Dir(cfg.SwaggerDir))
		handler.Handle("/swagger/", http.StripPrefix("/swagger/", fs))
		handler.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/swagger/checkin.swagger.json")))
	}

	handler.Handle("/", api)
	return handler
}
