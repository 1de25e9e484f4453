package service

import (
	"net/http"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/gin-gonic/gin"
)

type LedgerResponse struct {
	Owner               types.Address  `json:"owner"`
	CandidateOwner      *types.Address `json:"candidate_owner,omitempty"`
	WithdrawalPublisher types.Address  `json:"withdrawal_publisher"`
	FallbackPublisher   types.Address  `json:"fallback_publisher"`
	LimitPublisher      types.Address  `json:"limit_publisher"`
	DepositNonce        uint64         `json:"deposit_nonce"`
	MaxGeneration       uint64         `json:"max_generation"`
	Budget              string         `json:"budget"`
}

// ledger returns the roles and the ledger-wide counters.
func (s *Service) ledger(c *gin.Context) {
	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	response := LedgerResponse{
		Owner:               cState.Roles().Owner(),
		WithdrawalPublisher: cState.Roles().WithdrawalPublisher(),
		FallbackPublisher:   cState.Roles().FallbackPublisher(),
		LimitPublisher:      cState.Roles().LimitPublisher(),
		DepositNonce:        cState.App().GetDepositNonce(),
		MaxGeneration:       cState.App().GetMaxGeneration(),
		Budget:              cState.App().GetBudget().String(),
	}
	if candidate := cState.Roles().CandidateOwner(); !candidate.IsZero() {
		response.CandidateOwner = &candidate
	}

	c.JSON(http.StatusOK, response)
}
