package service

import (
	"net/http"
	"strconv"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/gin-gonic/gin"
)

const maxDepositsPerPage = 1000

type DepositResponse struct {
	Nonce     uint64        `json:"nonce"`
	Depositor types.Address `json:"depositor"`
	Amount    string        `json:"amount"`
}

type DepositsResponse struct {
	DepositNonce uint64            `json:"deposit_nonce"`
	Deposits     []DepositResponse `json:"deposits"`
}

// deposits pages through the pending deposits starting at the "from" nonce.
func (s *Service) deposits(c *gin.Context) {
	from, err := strconv.ParseUint(c.DefaultQuery("from", "0"), 10, 64)
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", "invalid from: "+err.Error(), nil)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > maxDepositsPerPage {
		s.createError(c, http.StatusBadRequest, "", "limit should be within [1, 1000]", nil)
		return
	}

	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	response := DepositsResponse{
		DepositNonce: cState.App().GetDepositNonce(),
		Deposits:     make([]DepositResponse, 0, limit),
	}
	for _, deposit := range cState.Deposits().List(from, limit) {
		response.Deposits = append(response.Deposits, DepositResponse{
			Nonce:     deposit.Nonce,
			Depositor: deposit.Depositor,
			Amount:    deposit.Amount,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (s *Service) deposit(c *gin.Context) {
	nonce, err := strconv.ParseUint(c.Param("nonce"), 10, 64)
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", "invalid nonce: "+err.Error(), nil)
		return
	}

	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	deposit := cState.Deposits().Get(nonce)
	if deposit == nil {
		s.createError(c, http.StatusNotFound, "", "deposit not found", map[string]string{"nonce": strconv.FormatUint(nonce, 10)})
		return
	}

	c.JSON(http.StatusOK, DepositResponse{
		Nonce:     deposit.Nonce,
		Depositor: deposit.Depositor,
		Amount:    deposit.Amount,
	})
}
