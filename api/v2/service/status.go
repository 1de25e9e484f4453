package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type StatusResponse struct {
	Version           string `json:"version"`
	Network           string `json:"network,omitempty"`
	Moniker           string `json:"moniker,omitempty"`
	LatestBlockHash   string `json:"latest_block_hash,omitempty"`
	LatestAppHash     string `json:"latest_app_hash,omitempty"`
	LatestBlockHeight uint64 `json:"latest_block_height"`
	LatestBlockTime   string `json:"latest_block_time,omitempty"`
	KeepLastStates    uint64 `json:"keep_last_states"`
	CatchingUp        bool   `json:"catching_up"`
	NodeId            string `json:"node_id,omitempty"`
	InitialHeight     uint64 `json:"initial_height"`
}

// status returns the node and the ledger heights.
func (s *Service) status(c *gin.Context) {
	response := StatusResponse{
		Version:           s.version,
		LatestBlockHeight: s.blockchain.Height(),
		KeepLastStates:    uint64(s.cfg.KeepLastStates),
		InitialHeight:     s.blockchain.InitialHeight() + 1,
	}

	if s.client != nil {
		result, err := s.client.Status(c.Request.Context())
		if err != nil {
			s.createError(c, http.StatusInternalServerError, "", err.Error(), nil)
			return
		}

		response.Network = result.NodeInfo.Network
		response.Moniker = result.NodeInfo.Moniker
		response.LatestBlockHash = fmt.Sprintf("%X", result.SyncInfo.LatestBlockHash)
		response.LatestAppHash = fmt.Sprintf("%X", result.SyncInfo.LatestAppHash)
		response.LatestBlockHeight = uint64(result.SyncInfo.LatestBlockHeight)
		response.LatestBlockTime = result.SyncInfo.LatestBlockTime.Format(time.RFC3339Nano)
		response.CatchingUp = result.SyncInfo.CatchingUp
		response.NodeId = string(result.NodeInfo.ID())
	}

	c.JSON(http.StatusOK, response)
}
