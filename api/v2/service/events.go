package service

import (
	"net/http"
	"strconv"

	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/gin-gonic/gin"
)

type EventResponse struct {
	Type  string       `json:"type"`
	Value events.Event `json:"value"`
}

type EventsResponse struct {
	Height uint64          `json:"height"`
	Events []EventResponse `json:"events"`
}

// events returns the events emitted by the operations of a block.
func (s *Service) events(c *gin.Context) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 32)
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", "invalid height: "+err.Error(), nil)
		return
	}

	loaded := s.blockchain.GetEventsDB().LoadEvents(uint32(height))
	if s.checkTimeout(c) {
		return
	}

	response := EventsResponse{
		Height: height,
		Events: make([]EventResponse, 0, len(loaded)),
	}
	for _, event := range loaded {
		response.Events = append(response.Events, EventResponse{Type: event.Type(), Value: event})
	}

	c.JSON(http.StatusOK, response)
}
