package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/minter"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/gin-gonic/gin"
	tmlog "github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

// Client is the part of the tendermint rpc the service relies on. The in-process node
// provides it through rpc/client/local.
type Client interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BroadcastTxSync(ctx context.Context, tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error)
	Tx(ctx context.Context, hash []byte, prove bool) (*ctypes.ResultTx, error)
	UnconfirmedTxs(ctx context.Context, limit *int) (*ctypes.ResultUnconfirmedTxs, error)
	NetInfo(ctx context.Context) (*ctypes.ResultNetInfo, error)
	Block(ctx context.Context, height *int64) (*ctypes.ResultBlock, error)
}

type Service struct {
	blockchain *minter.Blockchain
	client     Client
	cfg        *config.Config
	version    string
	logger     tmlog.Logger
}

func NewService(blockchain *minter.Blockchain, client Client, cfg *config.Config, version string, logger tmlog.Logger) *Service {
	if logger == nil {
		logger = tmlog.NewNopLogger()
	}
	return &Service{blockchain: blockchain, client: client, cfg: cfg, version: version, logger: logger}
}

type errorBody struct {
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

func (s *Service) createError(c *gin.Context, status int, code string, message string, data map[string]string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": errorBody{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

// getStateForRequest reads the optional "height" query parameter, 0 or missing selects the
// current state.
func (s *Service) getStateForRequest(c *gin.Context) (*state.CheckState, bool) {
	height, ok := s.heightParam(c)
	if !ok {
		return nil, false
	}

	cState, err := s.blockchain.GetStateForHeight(height)
	if err != nil {
		s.createError(c, http.StatusNotFound, "", err.Error(), nil)
		return nil, false
	}
	return cState, true
}

func (s *Service) heightParam(c *gin.Context) (uint64, bool) {
	raw := c.Query("height")
	if raw == "" {
		return 0, true
	}

	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", "invalid height: "+err.Error(), nil)
		return 0, false
	}
	return height, true
}

func (s *Service) checkTimeout(c *gin.Context) bool {
	select {
	case <-c.Request.Context().Done():
		s.createError(c, http.StatusRequestTimeout, "", c.Request.Context().Err().Error(), nil)
		return true
	default:
		return false
	}
}
