package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"

	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/match"
)

var ErrGameNotFound = errors.New("game not found")

// Server manages the RPC listener. Services are registered on a private
// rpc.Server, not the package default.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
	address  string
}

// NewServer listens on addr and registers the given services.
func NewServer(addr string, services ...interface{}) (*Server, error) {
	server := rpc.NewServer()
	for _, service := range services {
		if err := server.Register(service); err != nil {
			return nil, fmt.Errorf("register rpc service: %w", err)
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      server,
		address:  addr,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves RPC requests until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService exposes read-only game state to admin tooling.
type GameService struct {
	registry *match.Registry
}

func NewGameService(registry *match.Registry) *GameService {
	return &GameService{registry: registry}
}

type ListGamesArgs struct {
	OnlyRunning bool
}

type GameSummary struct {
	Name    string
	Rules   string
	Players []string
	Ready   bool
	Running bool
	Round   int
}

type ListGamesReply struct {
	Games []GameSummary
}

// ListGames must follow the net/rpc signature: exported method, exported
// arguments, pointer reply, error result.
func (gs *GameService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	reply.Games = reply.Games[:0]
	for _, m := range gs.registry.All() {
		if args.OnlyRunning && !m.Running() {
			continue
		}
		reply.Games = append(reply.Games, GameSummary{
			Name:    m.Name(),
			Rules:   m.Rules().Name(),
			Players: m.PlayerIDs(),
			Ready:   m.IsReady(),
			Running: m.Running(),
			Round:   m.Rounds(),
		})
	}
	return nil
}

type ScoreboardArgs struct {
	Game string
}

type ScoreboardReply struct {
	Round  int
	Scores []match.Score
}

func (gs *GameService) GetScoreboard(args *ScoreboardArgs, reply *ScoreboardReply) error {
	m, exists := gs.registry.Get(args.Game)
	if !exists {
		return fmt.Errorf("%w: %s", ErrGameNotFound, args.Game)
	}
	reply.Round = m.Rounds()
	reply.Scores = m.Scores()
	return nil
}
