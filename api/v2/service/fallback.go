package service

import (
	"net/http"
	"time"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/gin-gonic/gin"
)

type FallbackResponse struct {
	Root               types.Hash `json:"root"`
	MaxDepositIncluded uint64     `json:"max_deposit_included"`
	SetDate            int64      `json:"set_date"`
	Delay              uint64     `json:"delay"`
	ActiveFrom         int64      `json:"active_from"`
	Active             bool       `json:"active"`
}

// fallback returns the fallback root and whether the mechanism is active now.
func (s *Service) fallback(c *gin.Context) {
	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	f := cState.Fallback()
	c.JSON(http.StatusOK, FallbackResponse{
		Root:               f.Root(),
		MaxDepositIncluded: f.MaxDepositIncluded(),
		SetDate:            f.SetDate(),
		Delay:              f.Delay(),
		ActiveFrom:         f.ActiveFrom(),
		Active:             f.IsActive(time.Now()),
	})
}
