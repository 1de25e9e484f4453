// Package merkle folds withdrawal leaves through sorted-pair Keccak256 proofs.
//
// Pairs are hashed after ordering the two children as unsigned big-endian integers, so a
// proof is just the ordered list of sibling hashes and carries no left/right flags. The
// package never decides validity: callers look the folded root up in their own registry.
package merkle

import (
	"math/big"

	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
	"golang.org/x/crypto/sha3"
)

// EmptyLeaf is the hash of the canonical zero value, keccak256(uint256(0)). It pads trees
// with an odd number of nodes, including the single-leaf tree.
var EmptyLeaf = Keccak256(make([]byte, 32))

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) types.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return types.BytesToHash(d.Sum(nil))
}

// HashPair combines two nodes independent of their order.
func HashPair(a, b types.Hash) types.Hash {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return Keccak256(a[:], b[:])
}

// Fold reconstructs the root for leaf by combining it with proof from left to right.
func Fold(leaf types.Hash, proof []types.Hash) types.Hash {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed
}

// WithdrawalLeaf is the leaf authorizing a regular withdrawal of amount to account at
// authorization nonce accountNonce.
func WithdrawalLeaf(account types.Address, amount *big.Int, accountNonce uint64) types.Hash {
	return Keccak256(account[:], helpers.Uint256Bytes(amount), helpers.Uint64Bytes(accountNonce))
}

// FallbackLeaf is the leaf granting account a lifetime withdrawal total of maxCumulative.
func FallbackLeaf(account types.Address, maxCumulative *big.Int) types.Hash {
	return Keccak256(account[:], helpers.Uint256Bytes(maxCumulative))
}

// Root builds the sorted-pair tree over leaves and returns its root. A level with an odd
// number of nodes pairs the last one with EmptyLeaf. Root of no leaves is the zero hash.
func Root(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return types.Hash{}
	}

	level := leaves
	for {
		level = nextLevel(level)
		if len(level) == 1 {
			return level[0]
		}
	}
}

// Proof returns the sibling path for leaves[index] in the tree built by Root.
func Proof(leaves []types.Hash, index int) []types.Hash {
	if index < 0 || index >= len(leaves) {
		return nil
	}

	var proof []types.Hash
	level := leaves
	for {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		} else {
			proof = append(proof, EmptyLeaf)
		}

		level = nextLevel(level)
		if len(level) == 1 {
			return proof
		}
		index /= 2
	}
}

func nextLevel(level []types.Hash) []types.Hash {
	next := make([]types.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, HashPair(level[i], level[i+1]))
		} else {
			next = append(next, HashPair(level[i], EmptyLeaf))
		}
	}
	return next
}
