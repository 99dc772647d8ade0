// Package server exposes the Keep Run HTTP API.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Verifier    TokenVerifier
	Users       UserStore
	Observer    RequestObserver
	Metrics     http.Handler
	CORSOrigins []string
	Ready       func(ctx context.Context) error

	HabitHandler    *HabitHandler
	SettingsHandler *SettingsHandler
	PlannerHandler  *PlannerHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Observer))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	r.GET("/healthcheck", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				c.String(http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	api.Use(RequireAuth(cfg.Verifier, cfg.Users))
	{
		if h := cfg.HabitHandler; h != nil {
			api.GET("/habits/current", h.Current)
			api.POST("/habits/commands", h.Command)
			api.GET("/habits/history", h.History)
		}

		if h := cfg.SettingsHandler; h != nil {
			api.GET("/settings", h.Get)
			api.PUT("/settings", h.Update)
		}

		if h := cfg.PlannerHandler; h != nil {
			api.GET("/todos", h.ListTodos)
			api.POST("/todos", h.CreateTodo)
			api.PATCH("/todos/:id", h.UpdateTodo)
			api.POST("/todos/:id/check", h.CheckTodo)
			api.DELETE("/todos/:id", h.DeleteTodo)

			api.GET("/timeblocks", h.ListTimeBlocks)
			api.POST("/timeblocks", h.CreateTimeBlock)
			api.PUT("/timeblocks/:id", h.UpdateTimeBlock)
			api.DELETE("/timeblocks/:id", h.DeleteTimeBlock)

			api.GET("/evaluations", h.ListEvaluations)
			api.PUT("/evaluations/:date", h.PutEvaluation)
		}
	}

	return r
}
