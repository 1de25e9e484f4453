package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// export dumps the ledger at the requested height in the genesis format.
func (s *Service) export(c *gin.Context) {
	height, ok := s.heightParam(c)
	if !ok {
		return
	}
	if height == 0 {
		height = s.blockchain.Height()
	}

	cState, err := s.blockchain.GetStateForHeight(height)
	if err != nil {
		s.createError(c, http.StatusNotFound, "", err.Error(), nil)
		return
	}

	appState := cState.Export()
	if s.checkTimeout(c) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"height":    height,
		"app_state": appState,
	})
}
