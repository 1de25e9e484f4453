package service

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type BlockResponse struct {
	Hash         string                `json:"hash"`
	Height       int64                 `json:"height"`
	Time         string                `json:"time"`
	AppHash      string                `json:"app_hash"`
	Proposer     string                `json:"proposer"`
	Transactions []TransactionResponse `json:"transactions"`
}

// block returns a committed block with its decoded transactions. Results of the transactions
// are served by /transaction/:hash.
func (s *Service) block(c *gin.Context) {
	height, err := strconv.ParseInt(c.Param("height"), 10, 64)
	if err != nil || height <= 0 {
		s.createError(c, http.StatusBadRequest, "", "invalid height", nil)
		return
	}

	block, err := s.client.Block(c.Request.Context(), &height)
	if err != nil {
		s.createError(c, http.StatusNotFound, "", err.Error(), nil)
		return
	}

	response := BlockResponse{
		Hash:         fmt.Sprintf("%X", block.BlockID.Hash),
		Height:       block.Block.Height,
		Time:         block.Block.Time.Format(time.RFC3339Nano),
		AppHash:      fmt.Sprintf("%X", block.Block.AppHash),
		Proposer:     fmt.Sprintf("%X", block.Block.ProposerAddress),
		Transactions: make([]TransactionResponse, 0, len(block.Block.Txs)),
	}
	for _, tx := range block.Block.Txs {
		response.Transactions = append(response.Transactions, decodeTx(tx))
	}

	c.JSON(http.StatusOK, response)
}
