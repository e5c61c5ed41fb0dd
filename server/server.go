package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/rpsserver/broadcast"
	"github.com/wfunc/rpsserver/config"
	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/monitor"
	gamerpc "github.com/wfunc/rpsserver/rpc"
	"github.com/wfunc/rpsserver/rules"
	"github.com/wfunc/rpsserver/session"
	"github.com/wfunc/rpsserver/timer"
)

type GameServer struct {
	cfg            *config.Config
	defaultRules   *rules.RuleSet
	upgrader       websocket.Upgrader
	registry       *match.Registry
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	monitor        *monitor.Monitor
	timers         *timer.Manager
	rpcServer      *gamerpc.Server
	engine         *gin.Engine
	httpServer     *http.Server

	// running loops by game name, so each loop is watched once
	runs     map[string]*match.RunHandle
	runMutex sync.Mutex

	// pending bot fill timers by game name
	botTimers map[string]int64
	botMutex  sync.Mutex

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewGameServer wires the game registry to the websocket, HTTP and RPC
// surfaces. An empty RPC address disables the RPC listener.
func NewGameServer(cfg *config.Config) (*GameServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &GameServer{
		cfg:            cfg,
		defaultRules:   cfg.DefaultRules(),
		registry:       match.NewRegistry(),
		sessionManager: session.NewManager(),
		monitor:        monitor.NewMonitor("rps"),
		timers:         timer.NewManager(),
		runs:           make(map[string]*match.RunHandle),
		botTimers:      make(map[string]int64),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.broadcaster = broadcast.NewGameBroadcaster(s.registry, s.sessionManager)

	if cfg.Server.RPCAddress != "" {
		rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress, gamerpc.NewGameService(s.registry))
		if err != nil {
			s.timers.Stop()
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = s.routes()
	s.httpServer = &http.Server{
		Addr:    cfg.Server.HTTPAddress,
		Handler: s.engine,
	}
	return s, nil
}

// Handler exposes the HTTP lobby and websocket endpoint.
func (s *GameServer) Handler() http.Handler {
	return s.engine
}

func (s *GameServer) Registry() *match.Registry {
	return s.registry
}

// Start serves until Shutdown is called.
func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops every match loop, closes all sessions and drains the
// HTTP server within ctx.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		logger.Log.Info("Shutting down game server...")
		close(s.shutdownChan)
		s.timers.Stop()
		s.registry.CloseAll()
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

func (s *GameServer) shuttingDown() bool {
	select {
	case <-s.shutdownChan:
		return true
	default:
		return false
	}
}
