package roles

import (
	"testing"

	"github.com/flexa/capacity-smart-contracts/tree"
	"github.com/flexa/capacity-smart-contracts/types"
	db "github.com/tendermint/tm-db"
)

func TestRoles_AcceptOwnership(t *testing.T) {
	t.Parallel()

	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024, 0)
	if err != nil {
		t.Fatal(err)
	}

	roles := NewRoles(mutableTree.GetLastImmutable())
	owner := types.HexToAddress("0x01")
	candidate := types.HexToAddress("0x02")

	roles.SetOwner(owner)
	roles.SetCandidateOwner(candidate)
	roles.SetWithdrawalPublisher(types.HexToAddress("0x03"))

	if _, _, err := mutableTree.Commit(roles); err != nil {
		t.Fatal(err)
	}

	roles = NewRoles(mutableTree.GetLastImmutable())
	if roles.CandidateOwner() != candidate || roles.WithdrawalPublisher() != types.HexToAddress("0x03") {
		t.Fatal("roles were not persisted")
	}

	if previous := roles.AcceptOwnership(); previous != owner {
		t.Fatalf("unexpected previous owner %s", previous)
	}
	if roles.Owner() != candidate || !roles.CandidateOwner().IsZero() {
		t.Fatal("candidate must become the owner")
	}

	state := new(types.AppState)
	roles.Export(state)
	if state.Owner != candidate || state.CandidateOwner != nil {
		t.Fatalf("unexpected export %+v", state)
	}
}
