package statistics

import (
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/prometheus/client_golang/prometheus"
)

type Data struct {
	BlockStart struct {
		sync.RWMutex
		height    uint64
		time      time.Time
		timestamp float64
	}
	BlockEnd blockEnd

	Api    apiResponseTime
	Tx     txCounter
	Ledger ledgerGauges
}

type LastBlockInfo struct {
	Height    uint64
	Duration  float64
	Timestamp float64
}

type blockEnd struct {
	sync.RWMutex
	HeightProm    prometheus.Gauge
	DurationProm  prometheus.Gauge
	TimestampProm prometheus.Gauge
	LastBlockInfo LastBlockInfo
}

type apiResponseTime struct {
	sync.Mutex
	responseTime *prometheus.GaugeVec
}

type txCounter struct {
	count *prometheus.CounterVec
}

type ledgerGauges struct {
	budget        prometheus.Gauge
	maxGeneration prometheus.Gauge
	depositNonce  prometheus.Gauge
	custody       prometheus.Gauge
}

// New creates the collectors and registers them in reg.
func New(reg prometheus.Registerer) *Data {
	apiVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api",
			Help: "Api DurationProm Paths",
		},
		[]string{"path"},
	)
	txVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Executed operations by type and result code",
		},
		[]string{"type", "code"},
	)
	lastBlockDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_block_duration",
			Help: "Last block duration",
		},
	)
	height := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "height",
			Help: "Current height",
		},
	)
	timeBlock := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_block_timestamp",
			Help: "TimestampProm last block",
		},
	)
	budget := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_budget",
			Help: "Immediately withdrawable limit",
		},
	)
	maxGeneration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_max_generation",
			Help: "Generation of the latest withdrawal root",
		},
	)
	depositNonce := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_deposit_nonce",
			Help: "Nonce of the latest deposit",
		},
	)
	custody := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_custody_balance",
			Help: "Asset balance held in custody",
		},
	)

	reg.MustRegister(apiVec, txVec, lastBlockDuration, height, timeBlock, budget, maxGeneration, depositNonce, custody)

	return &Data{
		Api:      apiResponseTime{responseTime: apiVec},
		Tx:       txCounter{count: txVec},
		BlockEnd: blockEnd{HeightProm: height, DurationProm: lastBlockDuration, TimestampProm: timeBlock},
		Ledger: ledgerGauges{
			budget:        budget,
			maxGeneration: maxGeneration,
			depositNonce:  depositNonce,
			custody:       custody,
		},
	}
}

func (d *Data) SetStartBlock(height uint64, now time.Time, headerTime time.Time) {
	if d == nil {
		return
	}

	d.BlockStart.Lock()
	defer d.BlockStart.Unlock()

	d.BlockStart.height = height
	d.BlockStart.time = now
	d.BlockStart.timestamp = float64(headerTime.Unix())
}

func (d *Data) SetEndBlockDuration(timeEnd time.Time, height uint64) {
	if d == nil {
		return
	}

	d.BlockStart.RLock()
	defer d.BlockStart.RUnlock()

	if height != d.BlockStart.height {
		return
	}

	d.BlockEnd.Lock()
	defer d.BlockEnd.Unlock()

	durationSeconds := timeEnd.Sub(d.BlockStart.time).Seconds()

	d.BlockEnd.HeightProm.Set(float64(height))
	d.BlockEnd.DurationProm.Set(durationSeconds)
	d.BlockEnd.TimestampProm.Set(d.BlockStart.timestamp)

	d.BlockEnd.LastBlockInfo.Height = height
	d.BlockEnd.LastBlockInfo.Duration = durationSeconds
	d.BlockEnd.LastBlockInfo.Timestamp = d.BlockStart.timestamp
}

func (d *Data) SetApiTime(duration time.Duration, path string) {
	if d == nil {
		return
	}

	d.Api.Lock()
	defer d.Api.Unlock()

	d.Api.responseTime.With(prometheus.Labels{"path": path}).Set(duration.Seconds())
}

// PushTx counts an executed operation.
func (d *Data) PushTx(txType string, code uint32) {
	if d == nil {
		return
	}

	d.Tx.count.With(prometheus.Labels{"type": txType, "code": strconv.FormatUint(uint64(code), 10)}).Inc()
}

// SetLedger samples the ledger gauges from a committed state. Values beyond float64 precision
// are approximated.
func (d *Data) SetLedger(cs *state.CheckState) {
	if d == nil {
		return
	}

	budget, _ := new(big.Float).SetInt(cs.App().GetBudget()).Float64()
	custody, _ := new(big.Float).SetInt(cs.Assets().GetBalance(assets.CustodyAddress)).Float64()

	d.Ledger.budget.Set(budget)
	d.Ledger.custody.Set(custody)
	d.Ledger.maxGeneration.Set(float64(cs.App().GetMaxGeneration()))
	d.Ledger.depositNonce.Set(float64(cs.App().GetDepositNonce()))
}

func (d *Data) GetLastBlockInfo() LastBlockInfo {
	if d == nil {
		return LastBlockInfo{}
	}

	d.BlockEnd.RLock()
	defer d.BlockEnd.RUnlock()

	return d.BlockEnd.LastBlockInfo
}
