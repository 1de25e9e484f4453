package service

import (
	"net/http"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/gin-gonic/gin"
)

type AddressResponse struct {
	Address             types.Address `json:"address"`
	Balance             string        `json:"balance"`
	Allowance           string        `json:"allowance"`
	Progress            uint64        `json:"progress"`
	CumulativeWithdrawn string        `json:"cumulative_withdrawn"`
	TransactionCount    uint64        `json:"transaction_count"`
}

// address returns the asset balance and the withdrawal bookkeeping of an account.
func (s *Service) address(c *gin.Context) {
	address, err := types.ParseAddress(c.Param("address"))
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", err.Error(), nil)
		return
	}

	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	c.JSON(http.StatusOK, AddressResponse{
		Address:             address,
		Balance:             cState.Assets().GetBalance(address).String(),
		Allowance:           cState.Assets().GetAllowance(address).String(),
		Progress:            cState.Accounts().GetProgress(address),
		CumulativeWithdrawn: cState.Accounts().GetCumulativeWithdrawn(address).String(),
		TransactionCount:    cState.Accounts().GetNonce(address),
	})
}
