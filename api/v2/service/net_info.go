package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PeerResponse struct {
	ID         string `json:"id"`
	Moniker    string `json:"moniker"`
	ListenAddr string `json:"listen_addr"`
	RemoteIP   string `json:"remote_ip"`
	IsOutbound bool   `json:"is_outbound"`
}

type NetInfoResponse struct {
	Listening bool           `json:"listening"`
	Listeners []string       `json:"listeners"`
	NPeers    int            `json:"n_peers"`
	Peers     []PeerResponse `json:"peers"`
}

func (s *Service) netInfo(c *gin.Context) {
	result, err := s.client.NetInfo(c.Request.Context())
	if err != nil {
		s.createError(c, http.StatusInternalServerError, "", err.Error(), nil)
		return
	}

	response := NetInfoResponse{
		Listening: result.Listening,
		Listeners: result.Listeners,
		NPeers:    result.NPeers,
		Peers:     make([]PeerResponse, 0, len(result.Peers)),
	}
	for _, peer := range result.Peers {
		response.Peers = append(response.Peers, PeerResponse{
			ID:         string(peer.NodeInfo.ID()),
			Moniker:    peer.NodeInfo.Moniker,
			ListenAddr: peer.NodeInfo.ListenAddr,
			RemoteIP:   peer.RemoteIP,
			IsOutbound: peer.IsOutbound,
		})
	}

	c.JSON(http.StatusOK, response)
}
