package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/crm/pkg/types"
)

const (
	entityContact     = "contact"
	entityActivity    = "activity"
	entityOpportunity = "opportunity"
)

func (s *Server) createContact(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "create_contact") {
		return
	}
	var in types.ContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	contact, err := s.store.Contacts().Create(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err, entityContact, "create")
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (s *Server) listContacts(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "list_contacts") {
		return
	}
	contacts, err := s.store.Contacts().List(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, entityContact, "list")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (s *Server) createActivity(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "create_activity") {
		return
	}
	var in types.ActivityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	activity, err := s.store.Activities().Create(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err, entityActivity, "create")
		return
	}
	c.JSON(http.StatusCreated, activity)
}

func (s *Server) listActivities(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "list_activities") {
		return
	}
	activities, err := s.store.Activities().List(c.Request.Context(), id, types.ActivityListLimit)
	if err != nil {
		s.respondError(c, err, entityActivity, "list")
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (s *Server) createOpportunity(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "create_opportunity") {
		return
	}
	var in types.OpportunityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	opportunity, err := s.store.Opportunities().Create(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err, entityOpportunity, "create")
		return
	}
	c.JSON(http.StatusCreated, opportunity)
}

func (s *Server) listOpportunities(c *gin.Context) {
	id := c.Param("id")
	if !s.requireClient(c, id, "list_opportunities") {
		return
	}
	opportunities, err := s.store.Opportunities().ListOpen(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, entityOpportunity, "list")
		return
	}
	c.JSON(http.StatusOK, opportunities)
}
