// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-sniper/internal/blockchain"
	"github.com/rovshanmuradov/evm-sniper/internal/bot"
	"github.com/rovshanmuradov/evm-sniper/internal/config"
	"github.com/rovshanmuradov/evm-sniper/internal/events"
	"github.com/rovshanmuradov/evm-sniper/internal/logger"
	"github.com/rovshanmuradov/evm-sniper/internal/metrics"
	"github.com/rovshanmuradov/evm-sniper/internal/notify"
	"github.com/rovshanmuradov/evm-sniper/internal/sniping"
	"github.com/rovshanmuradov/evm-sniper/internal/storage"
	"github.com/rovshanmuradov/evm-sniper/internal/task"
	"github.com/rovshanmuradov/evm-sniper/internal/ui"
	"github.com/rovshanmuradov/evm-sniper/internal/wallet"
)

const (
	eventBufferSize = 256
	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	logCfg.Debug = cfg.DebugLogging
	log := logger.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()

	if err != nil {
		log.Error("Sniper stopped with error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
	_ = logger.Sync(log)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting sniper", zap.String("rpc", cfg.MaskedRPC()))

	w, err := wallet.NewWallet(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}

	manager := task.NewManager(log)
	manager.SetDefaultQuoteToken(cfg.WrappedNative)
	targets, err := manager.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}

	collector := metrics.NewCollector()

	client, err := blockchain.Dial(ctx, cfg.RPCURL, log, collector)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	client.SetCallTimeout(cfg.RPCTimeout)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("chain id: %w", err)
	}

	positions := storage.NewPositionTracker(cfg.PositionsFile, log)
	bus := events.NewBus(log, eventBufferSize)

	shutdown := bot.NewShutdownHandler(log, shutdownTimeout)
	shutdown.Add("rpc", client)
	shutdown.AddFunc("events", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bus.Shutdown(ctx)
	})

	notifier := notify.New(cfg.TelegramToken, cfg.TelegramChatID, "", nil, log)
	notify.Subscribe(bus, notifier, log)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, collector, log); err != nil {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	fmt.Println(ui.RenderBanner(ui.Summary{
		Wallet:       w.Address().Hex(),
		ChainID:      chainID.String(),
		Router:       cfg.RouterAddress,
		RPC:          cfg.MaskedRPC(),
		PollInterval: cfg.PollInterval.String(),
		Executed:     positions.Len(),
		Targets:      targets,
	}))

	scanner := sniping.NewScanner(sniping.ScannerConfig{
		Targets:      targets,
		Reader:       client,
		Positions:    positions,
		Publisher:    bus,
		PollInterval: cfg.PollInterval,
		Logger:       log,
		Metrics:      collector,
	})

	trader := bot.NewTrader(bot.TraderConfig{
		Chain:                 client,
		Signer:                w,
		ChainID:               chainID,
		Router:                common.HexToAddress(cfg.RouterAddress),
		Positions:             positions,
		Publisher:             bus,
		Logger:                log,
		Metrics:               collector,
		GasMultiplier:         cfg.GasMultiplier,
		GasLimit:              cfg.GasLimit,
		ApproveGasLimit:       cfg.ApproveGasLimit,
		SwapDeadline:          cfg.SwapDeadline,
		SubmitRetries:         cfg.SubmitRetries,
		SubmitRetryDelay:      cfg.SubmitRetryDelay,
		SwapReceiptTimeout:    cfg.SwapReceiptTimeout,
		ApproveReceiptTimeout: cfg.ApproveReceiptTimeout,
	})

	runner := bot.NewRunner(bot.RunnerConfig{
		Source:         scanner,
		Executor:       trader,
		QueueSize:      cfg.QueueSize,
		RearmOnFailure: cfg.RearmOnFailure,
		Logger:         log,
	})

	runErr := runner.Run(ctx)
	log.Info("Shutting down", zap.Int("executed", positions.Len()))

	if err := shutdown.Shutdown(context.Background()); err != nil {
		log.Warn("Shutdown finished with errors", zap.Error(err))
	}
	return runErr
}
