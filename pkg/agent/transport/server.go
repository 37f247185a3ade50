package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server is the gin HTTP surface for the sse, websocket, and http
// transports: the sse transport's event stream, the websocket transport's
// upgrade endpoint, the http transport's inbound push-report endpoint, and
// its poll endpoint for agents without a push channel (spec §6).
type Server struct {
	engine *gin.Engine
	ws     *WSHub
	sse    *SSEHub
}

// NewServer wires ws, sse, and http onto a gin engine. dispatchHandler
// handles inbound pushes an agent makes back to the core (status/result
// reports) over the http transport; it may be nil if the deployment only
// uses websocket/sse/stdio agents. poller may be nil if no http agent uses
// the poll (no push channel) shape.
func NewServer(ws *WSHub, sse *SSEHub, dispatchHandler gin.HandlerFunc, poller *HTTPDispatcher) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, ws: ws, sse: sse}

	engine.GET("/v1/agents/:agentId/ws", func(c *gin.Context) {
		ws.HandleWS(c.Writer, c.Request, c.Param("agentId"))
	})
	engine.GET("/v1/agents/:agentId/events", func(c *gin.Context) {
		sse.HandleSSE(c.Writer, c.Request, c.Param("agentId"))
	})
	if dispatchHandler != nil {
		engine.POST("/v1/agents/:agentId/report", dispatchHandler)
	}
	if poller != nil {
		engine.GET("/v1/agents/:agentId/poll", func(c *gin.Context) {
			c.JSON(http.StatusOK, poller.Poll(c.Param("agentId")))
		})
	}
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return s
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }
