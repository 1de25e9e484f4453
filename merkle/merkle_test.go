package merkle

import (
	"math/big"
	"testing"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/stretchr/testify/require"
)

func TestEmptyLeaf(t *testing.T) {
	t.Parallel()

	want := types.HexToHash("0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563")
	if EmptyLeaf != want {
		t.Fatalf("empty leaf mismatch: expected %s, got %s", want, EmptyLeaf)
	}
}

func TestHashPairIsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := Keccak256([]byte("a"))
	b := Keccak256([]byte("b"))
	require.Equal(t, HashPair(a, b), HashPair(b, a))
	require.NotEqual(t, HashPair(a, b), HashPair(a, a))
}

func TestFoldSingleLeafAgainstEmptyLeaf(t *testing.T) {
	t.Parallel()

	account := types.HexToAddress("0x369CCCb3bF65a6D44C2CE65CAC45Bc02D4052Aa2")
	leaf := WithdrawalLeaf(account, big.NewInt(100), 0)

	var root types.Hash
	if leaf.Compare(EmptyLeaf) < 0 {
		root = Keccak256(leaf[:], EmptyLeaf[:])
	} else {
		root = Keccak256(EmptyLeaf[:], leaf[:])
	}

	require.Equal(t, root, Fold(leaf, []types.Hash{EmptyLeaf}))
	require.Equal(t, root, Root([]types.Hash{leaf}))
	require.Equal(t, []types.Hash{EmptyLeaf}, Proof([]types.Hash{leaf}, 0))
}

func TestFoldDetectsTampering(t *testing.T) {
	t.Parallel()

	account := types.HexToAddress("0x369CCCb3bF65a6D44C2CE65CAC45Bc02D4052Aa2")
	root := Fold(WithdrawalLeaf(account, big.NewInt(100), 0), []types.Hash{EmptyLeaf})

	other := account
	other[19] ^= 1

	tampered := []types.Hash{
		Fold(WithdrawalLeaf(other, big.NewInt(100), 0), []types.Hash{EmptyLeaf}),
		Fold(WithdrawalLeaf(account, big.NewInt(101), 0), []types.Hash{EmptyLeaf}),
		Fold(WithdrawalLeaf(account, big.NewInt(100), 1), []types.Hash{EmptyLeaf}),
		Fold(WithdrawalLeaf(account, big.NewInt(100), 0), []types.Hash{Keccak256([]byte("Not the right root"))}),
	}

	for i, got := range tampered {
		if got == root {
			t.Fatalf("case %d: tampered fold matches the original root", i)
		}
	}
}

func TestProofsForEveryLeaf(t *testing.T) {
	t.Parallel()

	for size := 1; size <= 9; size++ {
		leaves := make([]types.Hash, size)
		for i := range leaves {
			leaves[i] = FallbackLeaf(types.BigToAddress(big.NewInt(int64(i+1))), big.NewInt(int64(1000*i)))
		}

		root := Root(leaves)
		for i, leaf := range leaves {
			if got := Fold(leaf, Proof(leaves, i)); got != root {
				t.Fatalf("size %d leaf %d: expected %s, got %s", size, i, root, got)
			}
		}
	}
}

func TestLeavesDifferByPath(t *testing.T) {
	t.Parallel()

	account := types.HexToAddress("0x0000000000000000000000000000000000000004")
	if WithdrawalLeaf(account, big.NewInt(100), 0) == FallbackLeaf(account, big.NewInt(100)) {
		t.Fatal("regular and fallback leaves must not collide")
	}
}
