package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type UnconfirmedTxsResponse struct {
	Count        int                   `json:"n_txs"`
	Total        int                   `json:"total"`
	TotalBytes   int64                 `json:"total_bytes"`
	Transactions []TransactionResponse `json:"transactions"`
}

// unconfirmedTxs lists the transactions waiting in the mempool.
func (s *Service) unconfirmedTxs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", "invalid limit: "+err.Error(), nil)
		return
	}

	txs, err := s.client.UnconfirmedTxs(c.Request.Context(), &limit)
	if err != nil {
		s.createError(c, http.StatusInternalServerError, "", err.Error(), nil)
		return
	}

	response := UnconfirmedTxsResponse{
		Count:        txs.Count,
		Total:        txs.Total,
		TotalBytes:   txs.TotalBytes,
		Transactions: make([]TransactionResponse, 0, len(txs.Txs)),
	}
	for _, tx := range txs.Txs {
		response.Transactions = append(response.Transactions, decodeTx(tx))
	}

	c.JSON(http.StatusOK, response)
}
