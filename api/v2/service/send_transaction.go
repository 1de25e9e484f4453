package service

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/gin-gonic/gin"
)

type SendTransactionRequest struct {
	Tx string `json:"tx" binding:"required"`
}

type SendTransactionResponse struct {
	Code string `json:"code"`
	Log  string `json:"log,omitempty"`
	Data string `json:"data,omitempty"`
	Hash string `json:"hash"`
}

// sendTransaction checks a signed transaction against the mempool and broadcasts it.
func (s *Service) sendTransaction(c *gin.Context) {
	var req SendTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.createError(c, http.StatusBadRequest, "", err.Error(), nil)
		return
	}

	decoded, err := hex.DecodeString(strings.TrimPrefix(req.Tx, "0x"))
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", err.Error(), nil)
		return
	}

	result, err := s.client.BroadcastTxSync(c.Request.Context(), decoded)
	if err != nil {
		s.createError(c, http.StatusPreconditionFailed, "", err.Error(), nil)
		return
	}

	if result.Code != code.OK {
		s.createError(c, http.StatusBadRequest, strconv.FormatUint(uint64(result.Code), 10), result.Log, map[string]string{
			"kind": code.KindOfCode(result.Code).String(),
		})
		return
	}

	c.JSON(http.StatusOK, SendTransactionResponse{
		Code: strconv.FormatUint(uint64(result.Code), 10),
		Log:  result.Log,
		Data: string(result.Data),
		Hash: "0x" + strings.ToLower(result.Hash.String()),
	})
}
