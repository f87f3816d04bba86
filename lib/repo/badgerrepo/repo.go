package badgerrepo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("repo")

// sequenceKey holds the id sequence lease
var sequenceKey = []byte("meta/seq")

// sequenceBandwidth is the number of ids leased from badger at a time
const sequenceBandwidth = 100

// Config configures the badger repository
type Config struct {
	// DBPath is the directory of the database. Ignored if InMemory is set.
	DBPath string
	// InMemory runs badger without touching disk (tests)
	InMemory bool
}

type repoImpl struct {
	db  *badger.DB
	seq *badger.Sequence

	closed atomic.Bool
}

// NewBadgerRepository opens (or creates) a badger database and returns a repository on top of it
func NewBadgerRepository(config Config) (repo.IRepository, error) {
	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING) // Reduce log noise
	opts = opts.WithCompression(options.None)    // Records are small

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	seq, err := db.GetSequence(sequenceKey, sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to acquire id sequence: %w", err)
	}

	log.Infof("opened badger repository (path=%q, in-memory=%t)", config.DBPath, config.InMemory)
	return &repoImpl{db: db, seq: seq}, nil
}

// wrap converts a badger error into a store error
func wrap(op string, err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return repo.WrapError(repo.RetCClosed, op+" failed", err)
	}
	if repo.IsStoreError(err) {
		return err
	}
	return repo.WrapError(repo.RetCInternalError, op+" failed", err)
}

// nextID returns the next identifier. Badger sequences start at 0, ids start at 1.
func (r *repoImpl) nextID() (int64, error) {
	n, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}

// check returns an error if the repository is closed or ctx is done
func (r *repoImpl) check(ctx context.Context, op string) error {
	if r.closed.Load() {
		return repo.NewError(repo.RetCClosed, op+" failed: repository is closed")
	}
	if err := ctx.Err(); err != nil {
		return repo.WrapError(repo.RetCInternalError, op+" aborted", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see repo/interface.go)
// --------------------------------------------------------------------------

func (r *repoImpl) Insert(ctx context.Context, rec record.Record) (int64, error) {
	if err := r.check(ctx, "insert"); err != nil {
		return 0, err
	}
	if err := repo.CheckRecord(rec); err != nil {
		return 0, err
	}
	id, err := r.nextID()
	if err != nil {
		return 0, wrap("insert", err)
	}
	rec.ID = id
	val, err := repo.EncodeRecord(rec)
	if err != nil {
		return 0, err
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(repo.RecordKey(id), val)
	}); err != nil {
		return 0, wrap("insert", err)
	}
	return id, nil
}

func (r *repoImpl) FindByID(ctx context.Context, id int64) (record.Record, bool, error) {
	if err := r.check(ctx, "find"); err != nil {
		return record.Record{}, false, err
	}
	var rec record.Record
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(repo.RecordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = repo.DecodeRecord(val)
			found = err == nil
			return err
		})
	})
	if err != nil {
		return record.Record{}, false, wrap("find", err)
	}
	return rec, found, nil
}

func (r *repoImpl) FindAll(ctx context.Context) ([]record.Record, error) {
	if err := r.check(ctx, "list"); err != nil {
		return nil, err
	}
	recs := []record.Record{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(repo.KeyPrefix); it.ValidForPrefix(repo.KeyPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := repo.DecodeRecord(val)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("list", err)
	}
	return recs, nil
}

func (r *repoImpl) Update(ctx context.Context, rec record.Record) (bool, error) {
	if err := r.check(ctx, "update"); err != nil {
		return false, err
	}
	if err := repo.CheckRecord(rec); err != nil {
		return false, err
	}
	val, err := repo.EncodeRecord(rec)
	if err != nil {
		return false, err
	}
	changed := false
	err = r.db.Update(func(txn *badger.Txn) error {
		key := repo.RecordKey(rec.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		changed = true
		return txn.Set(key, val)
	})
	if err != nil {
		return false, wrap("update", err)
	}
	return changed, nil
}

func (r *repoImpl) Delete(ctx context.Context, id int64) (bool, error) {
	if err := r.check(ctx, "delete"); err != nil {
		return false, err
	}
	changed := false
	err := r.db.Update(func(txn *badger.Txn) error {
		key := repo.RecordKey(id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		changed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, wrap("delete", err)
	}
	return changed, nil
}

func (r *repoImpl) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	// releasing returns unused leased ids, later ids stay unique
	if err := r.seq.Release(); err != nil {
		log.Warningf("failed to release id sequence: %v", err)
	}
	return r.db.Close()
}
