package service

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/gin-gonic/gin"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	tmtypes "github.com/tendermint/tendermint/types"
)

type TransactionResponse struct {
	Hash   string            `json:"hash"`
	RawTx  string            `json:"raw_tx"`
	Height int64             `json:"height,omitempty"`
	Index  uint32            `json:"index,omitempty"`
	From   string            `json:"from"`
	Nonce  uint64            `json:"nonce"`
	Type   string            `json:"type"`
	Data   transaction.Data  `json:"data"`
	Tags   map[string]string `json:"tags,omitempty"`
	Code   uint32            `json:"code"`
	Log    string            `json:"log,omitempty"`
}

// decodeTx describes a raw transaction. Undecodable transactions are reported with their
// type and without data.
func decodeTx(raw tmtypes.Tx) TransactionResponse {
	response := TransactionResponse{
		Hash:  "0x" + strings.ToLower(tmbytes.HexBytes(raw.Hash()).String()),
		RawTx: fmt.Sprintf("%x", []byte(raw)),
	}

	decodedTx, err := transaction.NewExecutor(transaction.GetData).DecodeFromBytes(raw)
	if err != nil {
		if envelope, err := transaction.DecodeFromBytesWithoutSig(raw); err == nil {
			response.Nonce = envelope.Nonce
			response.Type = envelope.Type.String()
		}
		return response
	}

	if sender, err := decodedTx.Sender(); err == nil {
		response.From = sender.String()
	}
	response.Nonce = decodedTx.Nonce
	response.Type = decodedTx.Type.String()
	response.Data = decodedTx.GetDecodedData()

	return response
}

// transaction looks up a committed transaction by its hash in the tendermint tx index.
func (s *Service) transaction(c *gin.Context) {
	hash, err := hex.DecodeString(strings.TrimPrefix(c.Param("hash"), "0x"))
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", err.Error(), nil)
		return
	}

	tx, err := s.client.Tx(c.Request.Context(), hash, false)
	if err != nil {
		s.createError(c, http.StatusNotFound, "", err.Error(), nil)
		return
	}

	response := decodeTx(tx.Tx)
	response.Height = tx.Height
	response.Index = tx.Index
	response.Code = tx.TxResult.Code
	response.Log = tx.TxResult.Log

	response.Tags = make(map[string]string)
	for _, event := range tx.TxResult.Events {
		if event.Type != "tags" {
			continue
		}
		for _, tag := range event.Attributes {
			response.Tags[string(tag.Key)] = string(tag.Value)
		}
	}

	c.JSON(http.StatusOK, response)
}
