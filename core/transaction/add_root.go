package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
)

type AddWithdrawalRootData struct {
	Root       types.Hash
	Generation uint64
	Replaced   []types.Hash
}

func (data AddWithdrawalRootData) TxType() TxType {
	return TypeAddWithdrawalRoot
}

func (data AddWithdrawalRootData) String() string {
	return fmt.Sprintf("ADD WITHDRAWAL ROOT root:%s generation:%d replaced:%d", data.Root.String(), data.Generation, len(data.Replaced))
}

func (data AddWithdrawalRootData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the owner and withdrawal publisher can add and replace withdrawal root hashes",
		owner(context), withdrawalPublisher(context)); response != nil {
		return response
	}

	if data.Root.IsZero() {
		return newResponse(code.ZeroRoot, "Added root may not be 0", code.NewSimple(code.ZeroRoot))
	}

	maxGeneration := context.App().GetMaxGeneration()
	expected, err := helpers.IncUint64(maxGeneration)
	if err != nil {
		return newResponse(code.WrongGeneration, "Nonce must be exactly max nonce + 1",
			code.NewWrongGeneration("", u64(data.Generation)))
	}
	if data.Generation != expected {
		return newResponse(code.WrongGeneration, "Nonce must be exactly max nonce + 1",
			code.NewWrongGeneration(u64(expected), u64(data.Generation)))
	}

	if existing := context.Roots().GetGeneration(data.Root); existing != 0 && existing != data.Generation {
		return newResponse(code.RootAlreadyExists, "Root already exists and is associated with a different nonce",
			code.NewRootAlreadyExists(data.Root.String(), u64(existing)))
	}

	return nil
}

func (data AddWithdrawalRootData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		deliverState.Roots.Add(data.Root, data.Generation)
		deliverState.App.SetMaxGeneration(data.Generation)
		evs = append(evs, &events.WithdrawalRootHashAdditionEvent{RootHash: data.Root, Nonce: data.Generation})

		evs = append(evs, removeRoots(deliverState, data.Replaced)...)
	}

	return Response{Code: code.OK, Events: evs}
}

// removeRoots deletes each registered root once. Absent roots are skipped silently.
func removeRoots(deliverState *state.State, roots []types.Hash) events.Events {
	var evs events.Events
	for _, root := range roots {
		if generation := deliverState.Roots.Remove(root); generation != 0 {
			evs = append(evs, &events.WithdrawalRootHashRemovalEvent{RootHash: root, Nonce: generation})
		}
	}
	return evs
}
