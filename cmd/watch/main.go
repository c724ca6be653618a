// Package main provides the live watch daemon: subscribe to a circle's
// membership and custody-deposit events over WebSocket and
// re-project the circle on every matching notification. Each
// projection appends a snapshot to the history store and a row to the
// resolution audit log.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
	"circle-resolver/internal/observability"
	"circle-resolver/internal/price"
	"circle-resolver/internal/projector"
	"circle-resolver/internal/storage"
	chstore "circle-resolver/internal/storage/clickhouse"
	"circle-resolver/internal/storage/memory"
	"circle-resolver/internal/storage/migrations"
	pgstore "circle-resolver/internal/storage/postgres"
)

// Watcher re-projects one circle on each pushed event.
type Watcher struct {
	projector   *projector.Projector
	snapshots   storage.SnapshotStore
	auditLog    storage.ResolutionLogStore
	metrics     *observability.Metrics
	logger      *log.Logger
	circleID    string
	viewer      string
	timeout     time.Duration
	minInterval time.Duration

	lastRun time.Time
	pending bool
}

func main() {
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("LEDGER_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("LEDGER_WS_ENDPOINT"), "Ledger WebSocket endpoint")
	packageID := flag.String("package-id", os.Getenv("CIRCLE_PACKAGE_ID"), "Deployed savings-circle package id")
	moduleName := flag.String("module", "savings_circle", "Ledger module name within the package")
	circleID := flag.String("circle-id", "", "Circle object id to watch")
	viewer := flag.String("viewer", "", "Viewer address for deposit status (optional)")
	priceEndpoint := flag.String("price-endpoint", os.Getenv("PRICE_ENDPOINT"), "Simple-price quote endpoint")
	priceAsset := flag.String("price-asset", "sui", "Asset id for the quote endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for snapshot history")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the audit log")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-projection timeout")
	minInterval := flag.Duration("min-interval", 5*time.Second, "Minimum interval between re-projections")

	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if *packageID == "" {
		logger.Fatal("--package-id is required")
	}
	if *circleID == "" {
		logger.Fatal("--circle-id is required")
	}
	if *priceEndpoint == "" {
		logger.Fatal("--price-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	var snapshots storage.SnapshotStore
	var auditLog storage.ResolutionLogStore
	if *useMemory {
		snapshots = memory.NewSnapshotStore()
		auditLog = memory.NewResolutionLogStore()
		logger.Println("Using in-memory storage")
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

		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Run clickhouse migrations: %v", err)
		}
		defer conn.Close()
		auditLog = chstore.NewResolutionLogStore(conn)
	}

	types := ledger.EventTypes{PackageID: *packageID, Module: *moduleName}

	client := ledger.NewHTTPClient(*rpcEndpoint,
		ledger.WithCallObserver(func(method string, duration time.Duration, err error) {
			metrics.RPCCallLatency.WithLabelValues(method).Observe(duration.Seconds())
			if err != nil {
				metrics.RPCCallErrors.WithLabelValues(method).Inc()
			}
		}))

	w := &Watcher{
		projector: projector.New(projector.Options{
			Client:  client,
			Quotes:  price.NewCached(price.NewHTTPSource(*priceEndpoint, *priceAsset)),
			Types:   types,
			Metrics: metrics,
			Logger:  logger,
		}),
		snapshots:   snapshots,
		auditLog:    auditLog,
		metrics:     metrics,
		logger:      logger,
		circleID:    *circleID,
		viewer:      *viewer,
		timeout:     *timeout,
		minInterval: *minInterval,
	}

	if err := w.run(ctx, *wsEndpoint, types); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// run subscribes to the event feeds and re-projects until ctx ends.
func (w *Watcher) run(ctx context.Context, wsEndpoint string, types ledger.EventTypes) error {
	stream, err := ledger.NewWSClient(ctx, wsEndpoint, nil)
	if err != nil {
		return err
	}
	defer stream.Close()

	joined, err := stream.SubscribeEvents(ctx, types.Filter(ledger.EventMemberJoined))
	if err != nil {
		return err
	}
	approved, err := stream.SubscribeEvents(ctx, types.Filter(ledger.EventMemberApproved))
	if err != nil {
		return err
	}
	deposited, err := stream.SubscribeEvents(ctx, types.Filter(ledger.EventCustodyDeposited))
	if err != nil {
		return err
	}

	w.logger.Printf("Watching circle %s", w.circleID)

	// Initial projection so the stores have a baseline before the
	// first event arrives.
	w.project(ctx)

	retry := time.NewTimer(0)
	if !retry.Stop() {
		<-retry.C
	}
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-joined:
			if !ok {
				return errors.New("member-joined subscription closed")
			}
			w.onEvent(ctx, notif.Event, retry)
		case notif, ok := <-approved:
			if !ok {
				return errors.New("member-approved subscription closed")
			}
			w.onEvent(ctx, notif.Event, retry)
		case notif, ok := <-deposited:
			if !ok {
				return errors.New("custody-deposited subscription closed")
			}
			w.onEvent(ctx, notif.Event, retry)
		case <-retry.C:
			w.pending = false
			w.logger.Printf("Deferred re-projection for circle %s", w.circleID)
			w.project(ctx)
		}
	}
}

// onEvent re-projects when the pushed event belongs to the watched
// circle. Within minInterval of the last run the event is not dropped:
// a deferred re-projection is armed for the remaining interval, so the
// trailing event of a burst still lands in the stores.
func (w *Watcher) onEvent(ctx context.Context, event ledger.Event, retry *time.Timer) {
	if event.StringField("circle_id") != w.circleID {
		return
	}
	if wait := w.minInterval - time.Since(w.lastRun); wait > 0 {
		if !w.pending {
			w.pending = true
			retry.Reset(wait)
		}
		return
	}
	w.logger.Printf("Event %s for circle %s, re-projecting", event.Type, w.circleID)
	w.project(ctx)
}

// project runs one projection and persists its results. Storage
// failures are logged and counted, never fatal.
func (w *Watcher) project(ctx context.Context) {
	w.lastRun = time.Now()

	projCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	snapshot, err := w.projector.Project(projCtx, w.circleID, w.viewer)
	durationMs := time.Since(start).Milliseconds()

	entry := &domain.ResolutionLogEntry{
		CircleID:     w.circleID,
		ResolvedAtMs: start.UnixMilli(),
		DurationMs:   durationMs,
	}

	switch {
	case err == nil && snapshot.Flags.Degraded():
		entry.Outcome = domain.OutcomeDegraded
	case err == nil:
		entry.Outcome = domain.OutcomeOK
	case errors.Is(err, domain.ErrCircleNotFound):
		entry.Outcome = domain.OutcomeNotFound
	default:
		entry.Outcome = domain.OutcomeError
	}

	if err != nil {
		w.logger.Printf("Projection failed for %s: %v", w.circleID, err)
	} else {
		entry.ResolvedAtMs = snapshot.ResolvedAtMs
		entry.MemberCount = snapshot.CurrentMembers
		entry.Flags = snapshot.Flags

		if insertErr := w.snapshots.Insert(ctx, snapshot); insertErr != nil && !errors.Is(insertErr, storage.ErrDuplicateKey) {
			w.logger.Printf("Snapshot insert failed for %s: %v", w.circleID, insertErr)
			w.metrics.StorageErrors.WithLabelValues("snapshots").Inc()
		} else if insertErr == nil {
			w.metrics.SnapshotsStored.Inc()
		}
	}

	if logErr := w.auditLog.InsertBulk(ctx, []*domain.ResolutionLogEntry{entry}); logErr != nil {
		w.logger.Printf("Audit log insert failed for %s: %v", w.circleID, logErr)
		w.metrics.StorageErrors.WithLabelValues("resolution_log").Inc()
	} else {
		w.metrics.AuditRowsStored.Inc()
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
