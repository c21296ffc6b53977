package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wayfinder/internal/orchestrator"
	"wayfinder/internal/prefs"
	"wayfinder/internal/rides"
)

func (s *Server) handleRecommend(c *gin.Context) {
	var req orchestrator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.UserID == "" || req.Origin == "" || req.Destination == "" || req.SelectedCity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId, origin, destination and selectedCity are required"})
		return
	}

	result := s.pipeline.Recommend(c.Request.Context(), req)
	switch result.Kind {
	case orchestrator.KindPlan, orchestrator.KindCityMismatch, orchestrator.KindNoRoutes:
		c.JSON(http.StatusOK, result)
	case orchestrator.KindError:
		c.JSON(http.StatusBadGateway, result)
	default:
		s.logger.Error("unhandled result kind %q", result.Kind)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) handleGetProfile(c *gin.Context) {
	userID := c.Param("userID")
	profile, found, err := s.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		profile = prefs.DefaultProfile(userID)
	}
	recent, err := s.profiles.RecentEvents(c.Request.Context(), userID, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":    profile,
		"confidence": prefs.Confidence(profile.Trips, recent),
	})
}

func (s *Server) handleResetProfile(c *gin.Context) {
	profile, err := s.profiles.Reset(c.Request.Context(), c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// eventID issues time-ordered ids so the append-only log sorts naturally;
// uuid v4 is the fallback if the clock source misbehaves.
func eventID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

type eventRequest struct {
	Type    prefs.EventType    `json:"type"`
	Payload prefs.EventPayload `json:"payload"`
}

func (s *Server) handleAppendEvents(c *gin.Context) {
	userID := c.Param("userID")
	var body struct {
		Events []eventRequest `json:"events"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(body.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one event is required"})
		return
	}

	events := make([]prefs.Event, 0, len(body.Events))
	for _, e := range body.Events {
		if !prefs.KnownEventType(e.Type) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type: " + string(e.Type)})
			return
		}
		events = append(events, prefs.Event{
			ID:      eventID(),
			UserID:  userID,
			Type:    e.Type,
			Payload: e.Payload,
			At:      time.Now().UTC(),
		})
	}

	ctx := c.Request.Context()
	profile, found, err := s.profiles.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		profile = prefs.DefaultProfile(userID)
	}
	for _, event := range events {
		if err := s.profiles.AppendEvent(ctx, event); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	profile = prefs.ApplyEvents(profile, events)
	if err := s.profiles.Put(ctx, profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "applied": len(events)})
}

func (s *Server) handleQuotes(c *gin.Context) {
	var req rides.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Origin == "" || req.Destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}
	set, err := s.broker.Quotes(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleBook(c *gin.Context) {
	var req rides.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	booking, err := s.broker.Book(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, rides.ErrUnknownProvider) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (s *Server) handleCancelBooking(c *gin.Context) {
	err := s.broker.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, rides.ErrUnknownBooking) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
