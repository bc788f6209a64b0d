package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/rtypearena/server/internal/config"
	"github.com/rtypearena/server/internal/core/ecs"
	"github.com/rtypearena/server/internal/core/event"
	"github.com/rtypearena/server/internal/game"
	"github.com/rtypearena/server/internal/game/ai"
	"github.com/rtypearena/server/internal/proto"
	"github.com/rtypearena/server/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/gameserver.toml"
	if p := os.Getenv("RTYPEARENA_GAME_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	arenaPath := "config/arena.yaml"
	if p := os.Getenv("RTYPEARENA_ARENA_CONFIG"); p != "" {
		arenaPath = p
	}
	arena, err := config.LoadArenaConfig(arenaPath)
	if err != nil {
		return fmt.Errorf("load arena config: %w", err)
	}

	aiEngine, err := ai.NewEngine(cfg.Scripts.EnemyAIDir, log)
	if err != nil {
		return fmt.Errorf("load enemy ai scripts: %w", err)
	}
	defer aiEngine.Close()

	world := ecs.NewWorld()
	bus := event.NewBus(log)
	inbox := make(chan game.InboundPacket, 1024)

	players := newPlayerSlots()

	var tcp *transport.Server
	var udp *transport.UDPEndpoint
	var st *game.State

	tcp, err = transport.NewServer(cfg.TCP.BindAddress, cfg.TCP.InQueueSize, cfg.TCP.OutQueueSize, log,
		func(conn *transport.Conn) {
			id, ok := players.acquire(conn.ID)
			if !ok {
				log.Warn("rejecting connection: player table full", zap.String("remote", conn.IP))
				conn.Close()
				return
			}
			spawnX := arena.Width / 2
			spawnY := arena.Height / 2
			if _, err := st.AddPlayer(id, spawnX, spawnY); err != nil {
				log.Error("add player failed", zap.Error(err))
				players.release(conn.ID)
				conn.Close()
				return
			}
			conn.Send(proto.CreatePacket(proto.TypePlayerAssign, &proto.PlayerAssign{
				SpawnX: spawnX, SpawnY: spawnY, Score: 0, PlayerID: id, Health: game.PlayerMaxHealth,
			}))
			log.Info("player connected", zap.Uint8("player_id", id), zap.String("remote", conn.IP))
			go echoPings(conn, log)
		},
		func(connID transport.ConnID) {
			id, ok := players.release(connID)
			if !ok {
				return
			}
			st.RemovePlayer(id)
			udp.UnregisterPlayer(id)
			log.Info("player disconnected", zap.Uint8("player_id", id))
		},
	)
	if err != nil {
		return fmt.Errorf("tcp server: %w", err)
	}
	defer tcp.Shutdown()

	udp, err = transport.NewUDPEndpoint(cfg.UDP.BindAddress, log, func(f proto.Frame, addr net.Addr) {
		if f.Type != proto.TypePlayerInput {
			log.Debug("dropping unexpected udp packet type", zap.Uint32("type", uint32(f.Type)))
			return
		}
		p, err := proto.Extract[proto.PlayerInput](f.Body)
		if err != nil {
			log.Debug("drop malformed udp packet", zap.Error(err))
			return
		}
		udp.RegisterPlayer(p.PlayerID, addr)
		select {
		case inbox <- game.InboundPacket{PlayerID: p.PlayerID, Actions: p.Actions, DirX: p.DirX, DirY: p.DirY}:
		default:
			log.Debug("inbox full, dropping input", zap.Uint8("player_id", p.PlayerID))
		}
	})
	if err != nil {
		return fmt.Errorf("udp endpoint: %w", err)
	}

	st = game.NewState(world, tcp, arena)
	_ = aiEngine // loaded and closed here only; EnemyMovementSystem does not consult the scripts

	engine := game.NewEngine(world, st, bus, udp, inbox, log)

	udpCtx, udpCancel := context.WithCancel(context.Background())
	defer udpCancel()
	stopTick := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { tcp.AcceptLoop(); return nil })
	g.Go(func() error { udp.ReceiveLoop(udpCtx); return nil })
	g.Go(func() error { engine.Run(stopTick); return nil })

	log.Info("game server ready",
		zap.String("tcp", tcp.Addr().String()),
		zap.String("udp", udp.Addr().String()),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutdown signal received", zap.String("signal", s.String()))
	close(stopTick)
	udpCancel()
	tcp.Shutdown()
	return g.Wait()
}

// echoPings answers every PingPacket a client sends with the same
// timestamp, the only TCP traffic a game client originates after its
// initial handshake.
func echoPings(conn *transport.Conn, log *zap.Logger) {
	for {
		select {
		case f := <-conn.InQueue:
			if f.Type != proto.TypePing {
				log.Debug("dropping unexpected tcp packet type", zap.Uint32("type", uint32(f.Type)))
				continue
			}
			p, err := proto.Extract[proto.PingPacket](f.Body)
			if err != nil {
				log.Debug("drop malformed ping", zap.Error(err))
				continue
			}
			conn.Send(proto.CreatePacket(proto.TypePing, p))
		case <-conn.Done():
			return
		}
	}
}

// playerSlots assigns each TCP connection a stable wrapping u8 player id
// for the lifetime of its connection, scoped to the single game instance
// this process hosts.
type playerSlots struct {
	mu       sync.Mutex
	byConn   map[transport.ConnID]uint8
	taken    [256]bool
	nextHint uint8
}

func newPlayerSlots() *playerSlots {
	return &playerSlots{byConn: make(map[transport.ConnID]uint8)}
}

func (p *playerSlots) acquire(connID transport.ConnID) (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < 256; i++ {
		id := p.nextHint
		p.nextHint++
		if !p.taken[id] {
			p.taken[id] = true
			p.byConn[connID] = id
			return id, true
		}
	}
	return 0, false
}

func (p *playerSlots) release(connID transport.ConnID) (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(p.byConn, connID)
	p.taken[id] = false
	return id, true
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
