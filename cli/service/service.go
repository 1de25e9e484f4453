package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/minter"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/version"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/evidence"
	tmNode "github.com/tendermint/tendermint/node"
	"github.com/tendermint/tendermint/p2p"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	typesTM "github.com/tendermint/tendermint/types"
)

// NodeClient is the part of the tendermint rpc used by the manager.
type NodeClient interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	NetInfo(ctx context.Context) (*ctypes.ResultNetInfo, error)
	DialPeers(ctx context.Context, peers []string, persistent, unconditional, private bool) (*ctypes.ResultDialPeers, error)
}

type DashboardResponse struct {
	LatestHeight   uint64  `json:"latest_height"`
	Timestamp      string  `json:"timestamp"`
	Duration       float64 `json:"duration"`
	MemoryUsage    uint64  `json:"memory_usage"`
	MaxPeerHeight  uint64  `json:"max_peer_height"`
	PeersCount     int     `json:"peers_count"`
	DepositNonce   uint64  `json:"deposit_nonce"`
	MaxGeneration  uint64  `json:"max_generation"`
	Budget         string  `json:"budget"`
	CustodyBalance string  `json:"custody_balance"`
	FallbackActive bool    `json:"fallback_active"`
}

type StatusResponse struct {
	Version           string `json:"version"`
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestAppHash     string `json:"latest_app_hash"`
	LatestBlockHeight int64  `json:"latest_block_height"`
	LatestBlockTime   string `json:"latest_block_time"`
	KeepLastStates    int64  `json:"keep_last_states"`
	CatchingUp        bool   `json:"catching_up"`
	PublicKey         string `json:"public_key"`
	NodeID            string `json:"node_id"`
}

type PeerResponse struct {
	ID                string `json:"id"`
	Moniker           string `json:"moniker"`
	ListenAddr        string `json:"listen_addr"`
	Network           string `json:"network"`
	Version           string `json:"version"`
	LatestBlockHeight int64  `json:"latest_block_height"`
	IsOutbound        bool   `json:"is_outbound"`
	RemoteIP          string `json:"remote_ip"`
	Duration          string `json:"duration"`
}

type NetInfoResponse struct {
	Listening  bool           `json:"listening"`
	Listeners  []string       `json:"listeners"`
	CountPeers int            `json:"count_peers"`
	Peers      []PeerResponse `json:"peers"`
}

type DialPeerRequest struct {
	Address    string `json:"address"`
	Persistent bool   `json:"persistent"`
}

// Manager answers operator requests about the running node.
type Manager struct {
	blockchain *minter.Blockchain
	tmRPC      NodeClient
	tmNode     *tmNode.Node
	cfg        *config.Config
}

func NewManager(blockchain *minter.Blockchain, tmRPC NodeClient, tmNode *tmNode.Node, cfg *config.Config) *Manager {
	return &Manager{blockchain: blockchain, tmRPC: tmRPC, tmNode: tmNode, cfg: cfg}
}

func (m *Manager) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	statisticData := m.blockchain.StatisticData()
	if statisticData == nil {
		return nil, errors.New("dashboard is not available, statistics are disabled")
	}
	info := statisticData.GetLastBlockInfo()

	maxPeersHeight := uint64(m.maxPeerHeight())
	if maxPeersHeight == 0 {
		maxPeersHeight = info.Height
	} else {
		maxPeersHeight = maxPeersHeight - 1
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	netInfo, err := m.tmRPC.NetInfo(ctx)
	if err != nil {
		return nil, err
	}

	cState := m.blockchain.CurrentState()
	cState.RLock()
	defer cState.RUnlock()

	return &DashboardResponse{
		LatestHeight:   info.Height,
		Timestamp:      time.Unix(int64(info.Timestamp), 0).UTC().Format(time.RFC3339Nano),
		Duration:       info.Duration,
		MemoryUsage:    mem.Sys,
		MaxPeerHeight:  maxPeersHeight,
		PeersCount:     netInfo.NPeers,
		DepositNonce:   cState.App().GetDepositNonce(),
		MaxGeneration:  cState.App().GetMaxGeneration(),
		Budget:         cState.App().GetBudget().String(),
		CustodyBalance: cState.Assets().GetBalance(assets.CustodyAddress).String(),
		FallbackActive: cState.Fallback().IsActive(time.Now()),
	}, nil
}

func (m *Manager) Status(ctx context.Context) (*StatusResponse, error) {
	result, err := m.tmRPC.Status(ctx)
	if err != nil {
		return nil, err
	}

	response := &StatusResponse{
		Version:           version.Version,
		LatestBlockHash:   fmt.Sprintf("%X", result.SyncInfo.LatestBlockHash),
		LatestAppHash:     fmt.Sprintf("%X", result.SyncInfo.LatestAppHash),
		LatestBlockHeight: result.SyncInfo.LatestBlockHeight,
		LatestBlockTime:   result.SyncInfo.LatestBlockTime.Format(time.RFC3339Nano),
		KeepLastStates:    m.cfg.BaseConfig.KeepLastStates,
		CatchingUp:        result.SyncInfo.CatchingUp,
		NodeID:            string(result.NodeInfo.ID()),
	}
	if result.ValidatorInfo.PubKey != nil {
		response.PublicKey = fmt.Sprintf("%X", result.ValidatorInfo.PubKey.Bytes())
	}

	return response, nil
}

func (m *Manager) NetInfo(ctx context.Context) (*NetInfoResponse, error) {
	resultNetInfo, err := m.tmRPC.NetInfo(ctx)
	if err != nil {
		return nil, err
	}

	peers := make([]PeerResponse, 0, len(resultNetInfo.Peers))
	for _, peer := range resultNetInfo.Peers {
		peers = append(peers, PeerResponse{
			ID:                string(peer.NodeInfo.ID()),
			Moniker:           peer.NodeInfo.Moniker,
			ListenAddr:        peer.NodeInfo.ListenAddr,
			Network:           peer.NodeInfo.Network,
			Version:           peer.NodeInfo.Version,
			LatestBlockHeight: m.peerHeight(peer.NodeInfo.ID()),
			IsOutbound:        peer.IsOutbound,
			RemoteIP:          peer.RemoteIP,
			Duration:          peer.ConnectionStatus.Duration.String(),
		})
	}

	return &NetInfoResponse{
		Listening:  resultNetInfo.Listening,
		Listeners:  resultNetInfo.Listeners,
		CountPeers: resultNetInfo.NPeers,
		Peers:      peers,
	}, nil
}

func (m *Manager) DialPeer(ctx context.Context, req DialPeerRequest) error {
	_, err := m.tmRPC.DialPeers(ctx, []string{req.Address}, req.Persistent, false, false)
	return err
}

func (m *Manager) maxPeerHeight() int64 {
	if m.tmNode == nil {
		return 0
	}

	var max int64
	for _, peer := range m.tmNode.Switch().Peers().List() {
		peerState, ok := peer.Get(typesTM.PeerStateKey).(evidence.PeerState)
		if !ok {
			continue
		}
		height := peerState.GetHeight()
		if height > max {
			max = height
		}
	}
	return max
}

func (m *Manager) peerHeight(id p2p.ID) int64 {
	if m.tmNode == nil {
		return 0
	}

	peerTM := m.tmNode.Switch().Peers().Get(id)
	if peerTM == nil {
		return 0
	}
	peerState, ok := peerTM.Get(typesTM.PeerStateKey).(evidence.PeerState)
	if !ok {
		return 0
	}
	return peerState.GetHeight()
}
