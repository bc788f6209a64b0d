package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/rtypearena/server/internal/config"
	"github.com/rtypearena/server/internal/core/event"
	"github.com/rtypearena/server/internal/dispatch"
	"github.com/rtypearena/server/internal/lobby"
	"github.com/rtypearena/server/internal/orchestrator"
	"github.com/rtypearena/server/internal/persist"
	"github.com/rtypearena/server/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/lobbyserver.toml"
	if p := os.Getenv("RTYPEARENA_LOBBY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLobbyServer(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := persist.NewDB(ctx, cfg.Database, log)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	err = persist.RunMigrations(migrateCtx, db.Pool)
	migrateCancel()
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations applied")

	users := persist.NewUserRepo(db)
	messages := persist.NewMessageRepo(db)

	orch, err := orchestrator.NewClient(
		cfg.Orchestrator.APIBaseURL,
		cfg.Orchestrator.Namespace,
		cfg.Orchestrator.TokenPath,
		cfg.Orchestrator.CAPath,
		log,
	)
	if err != nil {
		return fmt.Errorf("init orchestrator client: %w", err)
	}
	ports := orchestrator.NewPortAllocator(cfg.Orchestrator.PortRangeStart, cfg.Orchestrator.PortRangeEnd)

	bus := event.NewBus(log)
	table := dispatch.NewTable(log)
	lobby.RegisterHandlers(table, bus)

	var tcp *transport.Server
	var svc *lobby.Service

	tcp, err = transport.NewServer(cfg.TCP.BindAddress, cfg.TCP.InQueueSize, cfg.TCP.OutQueueSize, log,
		func(conn *transport.Conn) {
			log.Info("client connected", zap.Uint32("conn", uint32(conn.ID)), zap.String("remote", conn.IP))
			go pumpInbound(conn, table)
		},
		func(connID transport.ConnID) {
			svc.OnDisconnect(connID)
			log.Info("client disconnected", zap.Uint32("conn", uint32(connID)))
		},
	)
	if err != nil {
		return fmt.Errorf("tcp server: %w", err)
	}
	defer tcp.Shutdown()

	svc = lobby.NewService(bus, users, messages, tcp, orch, ports, cfg.Orchestrator.GameImage, log)

	stopRun := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error { tcp.AcceptLoop(); return nil })
	g.Go(func() error { svc.Run(stopRun); return nil })

	log.Info("lobby server ready", zap.String("tcp", tcp.Addr().String()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutdown signal received", zap.String("signal", s.String()))
	close(stopRun)
	tcp.Shutdown()
	return g.Wait()
}

// pumpInbound feeds every frame a connection sends into table, one at a
// time, until the connection closes.
func pumpInbound(conn *transport.Conn, table *dispatch.Table) {
	origin := dispatch.Origin{TCP: conn}
	for {
		select {
		case f := <-conn.InQueue:
			table.Dispatch(origin, f)
		case <-conn.Done():
			return
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
