package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"AlertMate/go-backend/internal/database"
	"AlertMate/go-backend/internal/handlers"
	"AlertMate/go-backend/internal/services"
	"AlertMate/go-backend/pkg/log"
	"AlertMate/go-backend/pkg/pb"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfgHTTPPort, "http-port", "", "HTTP port (default from HTTP_PORT)")
	serveCmd.Flags().StringVar(&cfgGRPCPort, "grpc-port", "", "gRPC port (default from GRPC_PORT)")
	rootCmd.AddCommand(serveCmd)
}

var cfgHTTPPort, cfgGRPCPort string

func port(flag, fallback string) string {
	p := fallback
	if flag != "" {
		p = flag
	}
	return strings.TrimPrefix(p, ":")
}

func runServe(ctx context.Context) error {
	httpPort := port(cfgHTTPPort, cfg.HTTPPort)
	grpcPort := port(cfgGRPCPort, cfg.GRPCPort)

	log.Info(log.Fields{
		"http":        httpPort,
		"grpc":        grpcPort,
		"landmarks":   cfg.LandmarkServiceURL,
		"environment": cfg.Environment,
	}, "starting")

	model, err := services.NewLandmarkClient(cfg.LandmarkServiceURL, cfg.MaxMessageSizeMB)
	if err != nil {
		return err
	}
	defer model.Close()

	var store handlers.Store
	var events services.EventSink
	if cfg.DatabaseEnabled() {
		log.Info(log.Fields{"dsn": cfg.DSNForLog()}, "connecting to database")
		db, err := database.Open(ctx, cfg.DSN())
		if err != nil {
			return err
		}
		st := database.NewStore(db)
		defer st.Close()
		store, events = st, st
	} else {
		log.Warn(nil, "DB_HOST not set, running without persistence")
	}

	var alerts services.AlertPublisher = services.NopPublisher{}
	if cfg.RedisAddress != "" {
		alerts = services.NewRedisPublisher(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, cfg.AlertChannel)
	}
	defer alerts.Close()

	metrics := services.NewMetrics()
	runner := services.NewRunner(model, metrics, alerts, events)
	detection := cfg.DetectionFor("socket")
	maxMsg := cfg.MaxMessageSizeMB * 1024 * 1024

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.MaxSendMsgSize(maxMsg),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	pb.RegisterDrowsinessDetectionServer(grpcServer, handlers.NewGRPCHandler(runner, detection))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(pb.DrowsinessDetection_ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	router := handlers.NewRouter(handlers.Deps{
		Store:           store,
		Runner:          runner,
		Model:           model,
		Detection:       detection,
		CORSOrigin:      cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		FrameRatePerSec: cfg.FrameRatePerSec,
		MaxMessageBytes: int64(maxMsg),
		MaxConnections:  cfg.MaxConnections,
	})
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 2)
	go func() { errc <- startGRPCServer(grpcServer, grpcPort) }()
	go func() { errc <- startHTTPServer(httpServer, httpPort) }()

	select {
	case <-ctx.Done():
		log.Info(nil, "shutting down")
	case err := <-errc:
		log.Error(log.Fields{"error": err.Error()}, "server failed")
		shutdown(grpcServer, healthServer, httpServer, router)
		return err
	}

	shutdown(grpcServer, healthServer, httpServer, router)
	log.Info(nil, "goodbye")
	return nil
}

func startGRPCServer(s *grpc.Server, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}
	log.Info(log.Fields{"port": port}, "gRPC server listening")
	return s.Serve(lis)
}

func startHTTPServer(s *http.Server, port string) error {
	log.Info(log.Fields{
		"port":      port,
		"websocket": "ws://localhost:" + port + "/ws/monitor",
		"rest":      "http://localhost:" + port + "/api/*",
	}, "HTTP server listening")

	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func shutdown(grpcServer *grpc.Server, hs *health.Server, httpServer *http.Server, router *handlers.Router) {
	hs.Shutdown()

	stopped := make(chan struct{})
	go func() {
		log.Info(nil, "stopping gRPC server")
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info(nil, "gRPC server stopped")
	case <-time.After(10 * time.Second):
		log.Warn(nil, "forced gRPC shutdown")
		grpcServer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info(nil, "stopping HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error(log.Fields{"error": err.Error()}, "HTTP shutdown failed")
	}

	log.Info(log.Fields{"clients": router.Monitor.ActiveClients()}, "closing WebSocket connections")
	router.Monitor.CloseAll()
}
