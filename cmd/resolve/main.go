// Package main provides a one-shot resolver: project a single circle
// into its read-model snapshot and print it as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
	"circle-resolver/internal/price"
	"circle-resolver/internal/projector"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("LEDGER_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	packageID := flag.String("package-id", os.Getenv("CIRCLE_PACKAGE_ID"), "Deployed savings-circle package id")
	moduleName := flag.String("module", "savings_circle", "Ledger module name within the package")
	circleID := flag.String("circle-id", "", "Circle object id to resolve")
	viewer := flag.String("viewer", "", "Viewer address for deposit status (optional)")
	priceEndpoint := flag.String("price-endpoint", os.Getenv("PRICE_ENDPOINT"), "Simple-price quote endpoint")
	priceAsset := flag.String("price-asset", "sui", "Asset id for the quote endpoint")
	staticRate := flag.Float64("rate", 0, "Fixed USD rate, bypasses the quote endpoint (for offline use)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall resolution timeout")
	pretty := flag.Bool("pretty", true, "Indent JSON output")

	flag.Parse()

	logger := log.New(os.Stderr, "[resolve] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *packageID == "" {
		logger.Fatal("--package-id is required")
	}
	if *circleID == "" {
		logger.Fatal("--circle-id is required")
	}

	var quotes price.Source
	switch {
	case *staticRate > 0:
		quotes = price.Static{Quote: price.Quote{Value: *staticRate, Status: price.StatusOK}}
	case *priceEndpoint != "":
		quotes = price.NewCached(price.NewHTTPSource(*priceEndpoint, *priceAsset))
	default:
		logger.Fatal("--price-endpoint or --rate is required")
	}

	client := ledger.NewHTTPClient(*rpcEndpoint)
	proj := projector.New(projector.Options{
		Client: client,
		Quotes: quotes,
		Types:  ledger.EventTypes{PackageID: *packageID, Module: *moduleName},
		Logger: logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snapshot, err := proj.Project(ctx, *circleID, *viewer)
	if err != nil {
		if errors.Is(err, domain.ErrCircleNotFound) {
			logger.Fatalf("Circle %s not found: %v", *circleID, err)
		}
		logger.Fatalf("Resolution failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snapshot); err != nil {
		logger.Fatalf("Encode snapshot: %v", err)
	}

	if snapshot.Flags.Degraded() {
		fmt.Fprintln(os.Stderr, "warning: snapshot is degraded, see flags")
	}
}
