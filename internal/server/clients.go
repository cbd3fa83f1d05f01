package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/crm/pkg/types"
)

const entityClient = "client"

// listQuery is bound from the query string of GET /clients.
type listQuery struct {
	Skip    int    `form:"skip,default=0"`
	Limit   int    `form:"limit,default=50"`
	State   string `form:"state"`
	Segment string `form:"segment"`
	Search  string `form:"search"`
}

// listResponse is the envelope of GET /clients.
type listResponse struct {
	Items []*types.Client `json:"items"`
	Total int             `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

func (s *Server) createClient(c *gin.Context) {
	var in types.ClientCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	client, err := s.store.Clients().Create(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err, entityClient, "create")
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (s *Server) listClients(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	items, total, err := s.store.Clients().List(c.Request.Context(), types.ClientFilter{
		State:   q.State,
		Segment: q.Segment,
		Search:  q.Search,
		Skip:    q.Skip,
		Limit:   q.Limit,
	})
	if err != nil {
		s.respondError(c, err, entityClient, "list")
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Skip: q.Skip, Limit: q.Limit})
}

func (s *Server) getClient(c *gin.Context) {
	client, err := s.store.Clients().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, entityClient, "get")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *Server) updateClient(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "update") {
		return
	}
	var in types.ClientUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	client, err := s.store.Clients().Update(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err, entityClient, "update")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *Server) deleteClient(c *gin.Context) {
	deleted, err := s.store.Clients().Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, entityClient, "delete")
		return
	}
	if !deleted {
		s.respondError(c, types.ErrNotFound, entityClient, "delete")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) findClientByEmail(c *gin.Context) {
	client, err := s.store.Clients().FindByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.respondError(c, err, entityClient, "find_by_email")
		return
	}
	c.JSON(http.StatusOK, client)
}

// requireClient writes a 404 and returns false when the client is missing.
func (s *Server) requireClient(c *gin.Context, id, op string) bool {
	ok, err := s.store.Clients().Exists(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, entityClient, op)
		return false
	}
	if !ok {
		s.respondError(c, types.ErrNotFound, entityClient, op)
		return false
	}
	return true
}
