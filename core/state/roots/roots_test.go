package roots

import (
	"testing"

	"github.com/flexa/capacity-smart-contracts/tree"
	"github.com/flexa/capacity-smart-contracts/types"
	db "github.com/tendermint/tm-db"
)

func TestRoots(t *testing.T) {
	t.Parallel()

	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024, 0)
	if err != nil {
		t.Fatal(err)
	}

	roots := NewRoots(mutableTree.GetLastImmutable())
	first := types.HexToHash("0x01")
	second := types.HexToHash("0x02")

	roots.Add(first, 1)
	roots.Add(second, 2)
	if _, _, err := mutableTree.Commit(roots); err != nil {
		t.Fatal(err)
	}

	roots = NewRoots(mutableTree.GetLastImmutable())
	if roots.GetGeneration(second) != 2 {
		t.Fatalf("unexpected generation %d", roots.GetGeneration(second))
	}

	if roots.Remove(first) != 1 {
		t.Fatal("first root must be removed with generation 1")
	}
	if roots.Remove(first) != 0 {
		t.Fatal("first root is already removed")
	}
	if roots.Remove(types.HexToHash("0x03")) != 0 {
		t.Fatal("unknown root has no generation")
	}

	if _, _, err := mutableTree.Commit(roots); err != nil {
		t.Fatal(err)
	}

	roots = NewRoots(mutableTree.GetLastImmutable())
	list := roots.List()
	if len(list) != 1 || list[0].Root != second || list[0].Generation != 2 {
		t.Fatalf("unexpected roots %v", list)
	}

	state := new(types.AppState)
	roots.Export(state)
	if len(state.WithdrawalRoots) != 1 {
		t.Fatalf("unexpected export %v", state.WithdrawalRoots)
	}
}
