package fallback

import (
	"math"
	"sync"

	"github.com/flexa/capacity-smart-contracts/types"
)

type Model struct {
	Root               types.Hash
	MaxDepositIncluded uint64
	// SetDate is the unix time of the last root update or reset.
	SetDate int64
	// Delay is in seconds, never 0.
	Delay uint64

	markDirty func()
	mx        sync.RWMutex
}

func (model *Model) update(fn func(model *Model)) {
	model.mx.Lock()
	fn(model)
	model.mx.Unlock()

	model.markDirty()
}

func (model *Model) activeFrom() int64 {
	if model.Delay > uint64(math.MaxInt64-model.SetDate) {
		return math.MaxInt64
	}
	return model.SetDate + int64(model.Delay)
}
