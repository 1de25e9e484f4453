package tree

import (
	"fmt"
	"sync"

	"github.com/cosmos/iavl"
	dbm "github.com/tendermint/tm-db"
)

// Saver is a sub-store that flushes its dirty cache into the mutable tree and then reads from
// the freshly saved immutable version.
type Saver interface {
	Commit(db *iavl.MutableTree, version int64) error
	SetImmutableTree(immutableTree *iavl.ImmutableTree)
}

type MTree interface {
	Commit(...Saver) ([]byte, int64, error)
	GetLastImmutable() *iavl.ImmutableTree
	GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error)
	DeleteVersion(version int64) error
	Version() int64
	Hash() []byte
}

// NewMutableTree opens the state tree. Height 0 starts an empty tree whose first saved version
// is initialVersion (or 1), any other height reloads that version and discards later ones.
func NewMutableTree(height uint64, db dbm.DB, cacheSize int, initialVersion uint64) (MTree, error) {
	tree, err := iavl.NewMutableTreeWithOpts(db, cacheSize, &iavl.Options{InitialVersion: initialVersion})
	if err != nil {
		return nil, err
	}

	m := &mutableTree{tree: tree}
	if height == 0 {
		return m, nil
	}

	if _, err := m.tree.LoadVersionForOverwriting(int64(height)); err != nil {
		return nil, err
	}

	return m, nil
}

// NewImmutableTree loads a read-only view of the tree at height.
func NewImmutableTree(height uint64, db dbm.DB) (*iavl.ImmutableTree, error) {
	tree, err := iavl.NewMutableTree(db, 1024)
	if err != nil {
		return nil, err
	}
	if _, err := tree.LazyLoadVersion(int64(height)); err != nil {
		return nil, err
	}
	immutableTree, err := tree.GetImmutable(int64(height))
	if err != nil {
		return nil, fmt.Errorf("can't load version %d: %w", height, err)
	}
	return immutableTree, nil
}

type mutableTree struct {
	tree *iavl.MutableTree

	lock sync.RWMutex
}

func (t *mutableTree) Commit(savers ...Saver) (hash []byte, version int64, err error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	next := t.tree.Version() + 1
	for _, saver := range savers {
		if err := saver.Commit(t.tree, next); err != nil {
			return nil, 0, err
		}
	}

	hash, version, err = t.tree.SaveVersion()
	if err != nil {
		return hash, version, err
	}

	immutable, err := t.tree.GetImmutable(version)
	if err != nil {
		return hash, version, err
	}

	for _, saver := range savers {
		saver.SetImmutableTree(immutable)
	}

	return hash, version, nil
}

func (t *mutableTree) GetLastImmutable() *iavl.ImmutableTree {
	t.lock.RLock()
	defer t.lock.RUnlock()

	immutable, err := t.tree.GetImmutable(t.tree.Version())
	if err != nil {
		return &iavl.ImmutableTree{}
	}

	return immutable
}

func (t *mutableTree) GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.GetImmutable(version)
}

func (t *mutableTree) DeleteVersion(version int64) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.tree.VersionExists(version) {
		return nil
	}

	return t.tree.DeleteVersion(version)
}

func (t *mutableTree) Version() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Version()
}

func (t *mutableTree) Hash() []byte {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Hash()
}
