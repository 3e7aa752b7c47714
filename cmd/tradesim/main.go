package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/simforge/tradesim/internal/dbg"
	"github.com/simforge/tradesim/pkg/broker"
	"github.com/simforge/tradesim/pkg/bus"
	"github.com/simforge/tradesim/pkg/clock"
	"github.com/simforge/tradesim/pkg/config"
	"github.com/simforge/tradesim/pkg/engine"
	"github.com/simforge/tradesim/pkg/journal/duckdb"
	"github.com/simforge/tradesim/pkg/scenario"
	"github.com/simforge/tradesim/pkg/stream"
	"github.com/simforge/tradesim/pkg/terminal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "run configuration file")
	prod := flag.Bool("prod", false, "use production logging")
	flag.Parse()

	logger := dbg.NewDevLogger()
	if *prod {
		logger = dbg.NewProdLogger()
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	dbg.RedirectSlog(logger)

	if err := run(*configPath, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("run failed", zap.Error(err))
	}
	logger.Info("done")
}

func run(configPath string, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	script, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk, err := clock.NewSimulated(time.Now().UTC(), cfg.Acceleration)
	if err != nil {
		return err
	}

	priceBus := bus.NewPriceBus()
	e := engine.NewEngine(clk, priceBus, rand.New(rand.NewSource(cfg.Seed)))
	for _, spec := range cfg.Symbols {
		e.AddSymbol(spec)
	}

	b := broker.NewBroker(e,
		broker.WithInitialBalance(cfg.Balance),
		broker.WithOrderThrottle(cfg.OrderThrottle.Std()),
		broker.WithTimeSource(e.Now),
	)
	priceBus.Subscribe(b.OnPriceUpdate)

	desk := terminal.NewDesk(e, b, priceBus)

	if cfg.Journal.Enabled {
		j, err := duckdb.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() {
			_ = j.Close()
		}()
		priceBus.Subscribe(j.OnPriceUpdate)
		b.OnClose(j.OnClose)
		logger.Info("journal enabled", zap.String("path", cfg.Journal.Path))
	}

	if cfg.Stream.Enabled {
		g := stream.NewGateway(cfg.Stream.Replay)
		defer g.Shutdown()
		priceBus.Subscribe(g.OnPriceUpdate)
		b.OnClose(g.OnClose)

		server := &http.Server{Addr: cfg.Stream.Addr, Handler: g}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("stream server failed", zap.Error(err))
			}
		}()
		defer func() {
			_ = server.Shutdown(context.Background())
		}()
		logger.Info("stream enabled", zap.String("addr", cfg.Stream.Addr))
	}

	logger.Info("starting scenario",
		zap.String("script", script.Name),
		zap.Float64("acceleration", cfg.Acceleration),
		zap.Int("symbols", len(cfg.Symbols)))

	if err := scenario.NewDriver(e, clk, script).Run(ctx); err != nil {
		return err
	}

	account := desk.Account()
	logger.Info("final account",
		zap.String("balance", account.Balance.String()),
		zap.String("equity", account.Equity.String()),
		zap.Int("open_positions", len(desk.Positions(""))))
	return nil
}
