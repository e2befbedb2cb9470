package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/membot/internal/middleware"
)

type RouterDeps struct {
	Chat      *ChatHandler
	RAG       *RAGHandler
	Metrics   http.Handler
	JWTSecret []byte
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	limited := middleware.RateLimit(deps.RateLimit)
	if deps.Chat != nil {
		authGroup.POST("/chat", limited, deps.Chat.Chat)
		authGroup.GET("/history", deps.Chat.History)
		authGroup.GET("/summaries", deps.Chat.Summaries)
	}
	if deps.RAG != nil {
		authGroup.POST("/rag/ask", limited, deps.RAG.Ask)
		authGroup.POST("/rag/search", limited, deps.RAG.Search)
	}
}
