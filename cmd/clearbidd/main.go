// clearbidd is the development daemon: it runs a settlement engine against
// in-memory capability implementations and serves the line-JSON protocol
// over TCP. Real deployments replace the in-memory registries with adapters
// to the production asset registry and token ledgers.
package main

import (
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clearbid-io/clearbid/config"
	"github.com/clearbid-io/clearbid/core"
	"github.com/clearbid-io/clearbid/engine"
)

func main() {
	cfg := config.Load()

	logger, err := buildLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	owner := core.Address(cfg.Engine.Owner)
	custodian := core.Address(cfg.Engine.Custodian)

	assets := engine.NewMemAssetRegistry()
	base := engine.NewMemBaseLedger()

	eng, err := engine.New(engine.Options{
		Owner:          owner,
		Custodian:      custodian,
		FeeBasisPoints: cfg.Engine.FeeBasisPoints,
		Version:        cfg.Engine.Version,
		AssetRegistry:  assets,
		BaseLedger:     base,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}

	// Development fixture: the base currency quoted at $2000.00000000.
	baseQuote := engine.NewMemQuoteSource(big.NewInt(200_000_000_000), 8)
	if err := eng.RegisterUnit(owner, core.BaseCurrency, baseQuote, nil); err != nil {
		logger.Fatal("failed to register base currency", zap.Error(err))
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	srv := &server{
		engine:     eng,
		logger:     logger,
		port:       cfg.API.Port,
		maxWorkers: cfg.API.MaxWorkers,
	}
	logger.Fatal("server stopped", zap.Error(srv.run()))
}

func buildLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()

	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)

	return zapCfg.Build()
}
