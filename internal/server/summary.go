package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/crm/pkg/types"
)

func (s *Server) summary(c *gin.Context) {
	sum, err := s.store.Summary(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "summary", "get")
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) clientStats(c *gin.Context) {
	stats, err := s.store.Clients().Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, entityClient, "stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) recordMetrics(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "record_metrics") {
		return
	}
	var m types.ClientMetrics
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err)
		return
	}
	client, err := s.store.Clients().RecordMetrics(c.Request.Context(), id, m)
	if err != nil {
		s.respondError(c, err, entityClient, "record_metrics")
		return
	}
	c.JSON(http.StatusOK, client)
}
