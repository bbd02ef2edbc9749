// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command apifactory starts the schema-driven instant API server.
//
// Upload a JSON document plus a JSON Schema to POST /api/validate; every
// top-level array key of the document then becomes a live CRUD resource,
// served simultaneously as REST under /api/{resource} and as a synthesized
// GraphQL schema at /graphql.
//
// # Environment Variables
//
//   - PORT: HTTP server port (default: 8080)
//   - DATA_DIR: badger data directory (default: ./data)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_DIR: optional directory for JSON log files
//   - OTEL_EXPORTER_OTLP_ENDPOINT: optional OpenTelemetry collector address;
//     tracing is disabled when unset
//
// # Usage
//
//	go build -o apifactory ./cmd/apifactory
//	./apifactory
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/apifactory/apifactory/pkg/logging"
	"github.com/apifactory/apifactory/services/gql"
	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/server/middleware"
	"github.com/apifactory/apifactory/services/server/observability"
	"github.com/apifactory/apifactory/services/server/routes"
	"github.com/apifactory/apifactory/services/store"
)

const serviceName = "apifactory"

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := getEnvString("PORT", "8080")
	dataDir := getEnvString("DATA_DIR", "./data")

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: serviceName,
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Tracing is optional; a missing endpoint just skips it.
	otelEndpoint := strings.Trim(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "\"' ")
	if otelEndpoint != "" {
		cleanup, err := initTracer(otelEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	st, err := store.Open(store.Config{Dir: dataDir, Logger: logger.Slog()})
	if err != nil {
		log.Fatalf("failed to open the data store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close the data store", "error", err)
		}
	}()

	res := resolver.New(st, resolver.NewGate())
	analytics := observability.NewAnalytics()
	metrics := observability.InitMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	if otelEndpoint != "" {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(middleware.RequestID(), middleware.Analytics(analytics, metrics))

	routes.SetupRoutes(router, routes.Deps{
		Resolver:  res,
		Synth:     gql.NewSynthesizer(res),
		Analytics: analytics,
		Metrics:   metrics,
	})

	snap := st.Snapshot()
	slog.Info("starting apifactory server",
		"port", port,
		"data_dir", dataDir,
		"dataset_loaded", snap.Valid,
		"resources", len(snap.Resources),
	)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
