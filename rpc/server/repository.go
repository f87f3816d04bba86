package server

import (
	"fmt"
	"path/filepath"

	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/ValentinKolb/dRec/lib/repo/badgerrepo"
	"github.com/ValentinKolb/dRec/lib/repo/memrepo"
	"github.com/ValentinKolb/dRec/lib/repo/pebblerepo"
	"github.com/ValentinKolb/dRec/rpc/common"
)

// NewRepositoryFactory returns the factory for the backend selected in the config.
// Persistent backends keep their files in a sub directory of the data directory.
func NewRepositoryFactory(config common.ServerConfig) repo.Factory {
	return func() (repo.IRepository, error) {
		switch config.Backend {
		case common.BackendMemory, "":
			return memrepo.NewMemoryRepository(), nil
		case common.BackendBadger:
			return badgerrepo.NewBadgerRepository(badgerrepo.Config{
				DBPath: filepath.Join(config.DataDir, "badger"),
			})
		case common.BackendPebble:
			return pebblerepo.NewPebbleRepository(pebblerepo.Config{
				DBPath: filepath.Join(config.DataDir, "pebble"),
			})
		default:
			return nil, fmt.Errorf("unknown repository backend: %s", config.Backend)
		}
	}
}
