package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/network"
)

// GameDetail is a game with its scoreboard.
type GameDetail struct {
	network.GameInfo
	Scores []match.Score `json:"scores"`
}

func (s *GameServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ws", s.handleWebSocket)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))

	api := r.Group("/api")
	{
		api.GET("/games", s.listGames)
		api.POST("/games", s.postGame)
		api.GET("/games/:name", s.getGame)
		api.DELETE("/games/:name", s.deleteGame)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *GameServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"games":    s.registry.Len(),
		"sessions": s.sessionManager.Len(),
		"uptime":   s.monitor.Uptime().Round(time.Second).String(),
	})
}

func (s *GameServer) listGames(c *gin.Context) {
	c.JSON(http.StatusOK, s.gameInfos())
}

func (s *GameServer) postGame(c *gin.Context) {
	var req network.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	m, created, err := s.createGame(req.Name, req.Rules)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrGameNameRequired) || errors.Is(err, ErrUnknownRules) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gameInfo(m))
}

func (s *GameServer) getGame(c *gin.Context) {
	m, exists := s.registry.Get(c.Param("name"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	c.JSON(http.StatusOK, GameDetail{GameInfo: gameInfo(m), Scores: m.Scores()})
}

func (s *GameServer) deleteGame(c *gin.Context) {
	if !s.removeGame(c.Param("name")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
