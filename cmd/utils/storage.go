package utils

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	db "github.com/tendermint/tm-db"
)

// Storage owns the databases of a node: the versioned ledger state, the events per height and
// the application metadata.
type Storage struct {
	home       string
	configPath string

	stateDB db.DB
	eventDB db.DB
	appDB   db.DB
}

func NewStorage(home string, configPath string) *Storage {
	if home == "" {
		home = GetLedgerHome()
	}
	if configPath == "" {
		configPath = filepath.Join(home, "config", "config.toml")
	}
	return &Storage{home: home, configPath: configPath}
}

func (s *Storage) GetLedgerHome() string {
	return s.home
}

func (s *Storage) GetLedgerConfigPath() string {
	return s.configPath
}

// InitStateLevelDB opens the state database under the data directory.
func (s *Storage) InitStateLevelDB(name string, opts *opt.Options) error {
	levelDB, err := db.NewGoLevelDBWithOpts(name, filepath.Join(s.home, "data"), opts)
	if err != nil {
		return errors.Wrapf(err, "open %s", name)
	}
	s.stateDB = levelDB
	return nil
}

// InitEventLevelDB opens the events database under the data directory.
func (s *Storage) InitEventLevelDB(name string, opts *opt.Options) error {
	levelDB, err := db.NewGoLevelDBWithOpts(name, filepath.Join(s.home, "data"), opts)
	if err != nil {
		return errors.Wrapf(err, "open %s", name)
	}
	s.eventDB = levelDB
	return nil
}

// InitAppDB opens the application metadata database with given backend.
func (s *Storage) InitAppDB(backend string) error {
	appDB, err := db.NewDB("app", db.BackendType(backend), filepath.Join(s.home, "data"))
	if err != nil {
		return errors.Wrap(err, "open app")
	}
	s.appDB = appDB
	return nil
}

// InitMemDB backs every database with memory.
func (s *Storage) InitMemDB() {
	s.stateDB = db.NewMemDB()
	s.eventDB = db.NewMemDB()
	s.appDB = db.NewMemDB()
}

func (s *Storage) StateDB() db.DB {
	return s.stateDB
}

func (s *Storage) EventDB() db.DB {
	return s.eventDB
}

func (s *Storage) AppDB() db.DB {
	return s.appDB
}

// Close closes every opened database and returns the first error.
func (s *Storage) Close() error {
	var first error
	for _, database := range []db.DB{s.appDB, s.stateDB, s.eventDB} {
		if database == nil {
			continue
		}
		if err := database.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
