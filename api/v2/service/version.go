package service

import (
	"net/http"

	"github.com/flexa/capacity-smart-contracts/version"
	"github.com/gin-gonic/gin"
)

// versions lists the node releases the ledger ran with and the height each started at.
func (s *Service) versions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":  s.version,
		"app":      version.AppVer,
		"versions": s.blockchain.UpdateVersions(),
	})
}
