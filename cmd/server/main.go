// Package main provides the HTTP read API:
// - GET /circles/{id}: project a circle on demand
// - GET /circles/{id}/history: stored snapshot history
// - GET /healthz, GET /metrics
// Every successful on-demand projection is appended to the snapshot
// history store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
	"circle-resolver/internal/observability"
	"circle-resolver/internal/price"
	"circle-resolver/internal/projector"
	"circle-resolver/internal/storage"
	"circle-resolver/internal/storage/memory"
	"circle-resolver/internal/storage/migrations"
	pgstore "circle-resolver/internal/storage/postgres"
)

const defaultHistoryLimit = 20

// Server wires the projector and the snapshot history store behind HTTP.
type Server struct {
	projector *projector.Projector
	snapshots storage.SnapshotStore
	metrics   *observability.Metrics
	logger    *log.Logger
	timeout   time.Duration
}

func main() {
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("LEDGER_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	packageID := flag.String("package-id", os.Getenv("CIRCLE_PACKAGE_ID"), "Deployed savings-circle package id")
	moduleName := flag.String("module", "savings_circle", "Ledger module name within the package")
	priceEndpoint := flag.String("price-endpoint", os.Getenv("PRICE_ENDPOINT"), "Simple-price quote endpoint")
	priceAsset := flag.String("price-asset", "sui", "Asset id for the quote endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for snapshot history")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-request resolution timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *packageID == "" {
		logger.Fatal("--package-id is required")
	}
	if *priceEndpoint == "" {
		logger.Fatal("--price-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var snapshots storage.SnapshotStore
	if *useMemory {
		snapshots = memory.NewSnapshotStore()
		logger.Println("Using in-memory snapshot store")
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Run postgres migrations: %v", err)
		}
		snapshots = pgstore.NewSnapshotStore(pool)
	}

	metrics := observability.NewMetrics("")

	client := ledger.NewHTTPClient(*rpcEndpoint,
		ledger.WithCallObserver(func(method string, duration time.Duration, err error) {
			metrics.RPCCallLatency.WithLabelValues(method).Observe(duration.Seconds())
			if err != nil {
				metrics.RPCCallErrors.WithLabelValues(method).Inc()
			}
		}))

	srv := &Server{
		projector: projector.New(projector.Options{
			Client:  client,
			Quotes:  price.NewCached(price.NewHTTPSource(*priceEndpoint, *priceAsset)),
			Types:   ledger.EventTypes{PackageID: *packageID, Module: *moduleName},
			Metrics: metrics,
			Logger:  logger,
		}),
		snapshots: snapshots,
		metrics:   metrics,
		logger:    logger,
		timeout:   *timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/circles/", srv.handleCircles)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: mux,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// handleCircles routes /circles/{id} and /circles/{id}/history.
func (s *Server) handleCircles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/circles/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleResolve(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history":
		s.handleHistory(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// handleResolve projects a circle on demand and appends the snapshot
// to the history store. A storage failure does not fail the request.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, circleID string) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	viewer := r.URL.Query().Get("viewer")

	snapshot, err := s.projector.Project(ctx, circleID, viewer)
	if err != nil {
		if errors.Is(err, domain.ErrCircleNotFound) {
			http.Error(w, fmt.Sprintf("circle %s not found", circleID), http.StatusNotFound)
			return
		}
		s.logger.Printf("Projection failed for %s: %v", circleID, err)
		http.Error(w, "resolution failed", http.StatusBadGateway)
		return
	}

	if err := s.snapshots.Insert(ctx, snapshot); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Printf("Snapshot insert failed for %s: %v", circleID, err)
		s.metrics.StorageErrors.WithLabelValues("snapshots").Inc()
	} else if err == nil {
		s.metrics.SnapshotsStored.Inc()
	}

	writeJSON(w, s.logger, snapshot)
}

// handleHistory serves stored snapshots, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, circleID string) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := s.snapshots.ListByCircle(ctx, circleID, limit)
	if err != nil {
		s.logger.Printf("History lookup failed for %s: %v", circleID, err)
		s.metrics.StorageErrors.WithLabelValues("snapshots").Inc()
		http.Error(w, "history lookup failed", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []*domain.ResolvedCircle{}
	}

	writeJSON(w, s.logger, history)
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf("Encode response: %v", err)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
