package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/maspithik/angkringan/internal/adapter/auth"
	"github.com/maspithik/angkringan/internal/adapter/handler"
	"github.com/maspithik/angkringan/internal/adapter/storage"
	"github.com/maspithik/angkringan/internal/config"
	"github.com/maspithik/angkringan/internal/core/service"
	"github.com/maspithik/angkringan/internal/metrics"
	"github.com/maspithik/angkringan/internal/port"
)

const reapInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	dialect, err := storage.ParseDialect(cfg.DBDriver)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect %s: %v", cfg.DBDriver, err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping %s: %v", cfg.DBDriver, err)
	}
	log.Printf("connected to %s", cfg.DBDriver)

	backend := storage.NewSQLBackend(db, dialect)
	if err := backend.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// Initialize Redis, or keep everything in process without it
	var (
		rdb          *redis.Client
		realtime     port.RealtimeChannel
		sessions     auth.SessionStore
		localStorage func(deviceID, tabID string) port.LocalStorage
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Println("connected to redis")

		realtime = storage.NewRedisRealtime(rdb)
		sessions = auth.NewRedisSessionStore(rdb)
		localStorage = func(deviceID, tabID string) port.LocalStorage {
			return storage.NewRedisLocalStorage(rdb, deviceID, tabID)
		}
	} else {
		log.Println("no redis configured, tabs share state in process only")
		devices := storage.NewMemoryDevices()
		realtime = storage.NewMemoryRealtime()
		sessions = auth.NewMemorySessionStore()
		localStorage = func(deviceID, tabID string) port.LocalStorage {
			return devices.View(deviceID, tabID)
		}
	}

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize services
	objects := storage.NewFileObjectStorage(cfg.StorageDir, cfg.PublicBaseURL)
	notifications := storage.NewPublishingNotifications(backend, realtime)
	authService := auth.NewService(backend, sessions, cfg.JWTSecret, cfg.SessionTTL)

	dispatcher := service.NewNotificationDispatcher(notifications, cfg.QueueSize, m)
	dispatcher.Start(cfg.WorkerCount)

	tabs := service.NewTabRegistry(service.TabDeps{
		Storage:       localStorage,
		Auth:          func(deviceID string) port.AuthProvider { return authService.Device(deviceID) },
		Realtime:      realtime,
		Users:         backend,
		Notifications: notifications,
		Metrics:       m,
	}, cfg.TabIdleTimeout)
	go tabs.RunReaper(ctx, reapInterval)

	payments := service.NewPaymentService(backend, backend, objects)
	storefront := service.NewStorefrontService(backend, backend, backend, objects)
	checkout := service.NewCheckoutService(backend, payments, m)
	admin := service.NewAdminService(backend, backend, backend, objects, dispatcher)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterStorefrontServer(grpcServer, handler.NewGRPCHandler(tabs, storefront, checkout, authService))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	deps := handler.HTTPDeps{
		Tabs:       tabs,
		Storefront: storefront,
		Checkout:   checkout,
		Payments:   payments,
		Admin:      admin,
		Verifier:   authService,
		Objects:    objects.Handler(),
		Timeout:    cfg.RequestTimeout,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.NewHTTPHandler(deps).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
	log.Println("HTTP server stopped")

	// Open WatchTab streams would hold GracefulStop forever
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}
	log.Println("gRPC server stopped")

	// Close tabs, then drain the notification queue
	cancel()
	tabs.Shutdown()
	log.Println("tabs closed")
	dispatcher.Close()
	log.Println("workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Println("connections closed")
}
