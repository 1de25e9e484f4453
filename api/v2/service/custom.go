package service

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func (s *Service) responseTime(c *gin.Context) {
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		return
	}
	s.blockchain.StatisticData().SetApiTime(time.Since(start), path)
}

// Handlers returns the http routes of the ledger api. Metrics of gatherer are served under
// /metrics when it is not nil.
func (s *Service) Handlers(gatherer prometheus.Gatherer) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.responseTime)

	r.GET("/status", s.status)
	r.GET("/versions", s.versions)
	r.GET("/ledger", s.ledger)
	r.GET("/address/:address", s.address)
	r.GET("/deposits", s.deposits)
	r.GET("/deposit/:nonce", s.deposit)
	r.GET("/roots", s.roots)
	r.GET("/root/:root", s.root)
	r.GET("/fallback", s.fallback)
	r.GET("/events/:height", s.events)
	r.GET("/export", s.export)
	r.GET("/block/:height", s.block)
	r.GET("/transaction/:hash", s.transaction)
	r.GET("/unconfirmed_txs", s.unconfirmedTxs)
	r.GET("/net_info", s.netInfo)
	r.POST("/send_transaction", s.sendTransaction)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
