package pebblerepo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("repo")

// counterKey stores the last allocated id
var counterKey = []byte("meta/last-id")

// Config configures the pebble repository
type Config struct {
	// DBPath is the directory of the database
	DBPath string
	// InMemory keeps all files in an in-memory filesystem (tests)
	InMemory bool
}

type repoImpl struct {
	db *pebble.DB

	// writeMu serializes writers so that existence checks and writes are atomic
	writeMu sync.Mutex
	lastID  int64

	closed atomic.Bool
}

// NewPebbleRepository opens (or creates) a pebble database and returns a repository on top of it
func NewPebbleRepository(config Config) (repo.IRepository, error) {
	opts := &pebble.Options{}
	if config.InMemory {
		opts.FS = vfs.NewMem()
	}

	db, err := pebble.Open(config.DBPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", config.DBPath, err)
	}

	r := &repoImpl{db: db}
	val, closer, err := db.Get(counterKey)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		// fresh database
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("failed to read id counter: %w", err)
	default:
		if len(val) == 8 {
			r.lastID = int64(binary.BigEndian.Uint64(val))
		}
		_ = closer.Close()
	}

	log.Infof("opened pebble repository (path=%q, in-memory=%t, last id=%d)", config.DBPath, config.InMemory, r.lastID)
	return r, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, pebble.ErrClosed) {
		return repo.WrapError(repo.RetCClosed, op+" failed", err)
	}
	if repo.IsStoreError(err) {
		return err
	}
	return repo.WrapError(repo.RetCInternalError, op+" failed", err)
}

// exists reports whether key is present
func (r *repoImpl) exists(key []byte) (bool, error) {
	_, closer, err := r.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
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

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	rec.ID = r.lastID + 1
	val, err := repo.EncodeRecord(rec)
	if err != nil {
		return 0, err
	}
	counter := make([]byte, 8)
	binary.BigEndian.PutUint64(counter, uint64(rec.ID))

	batch := r.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(repo.RecordKey(rec.ID), val, nil); err != nil {
		return 0, wrap("insert", err)
	}
	if err := batch.Set(counterKey, counter, nil); err != nil {
		return 0, wrap("insert", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, wrap("insert", err)
	}
	r.lastID = rec.ID
	return rec.ID, nil
}

func (r *repoImpl) FindByID(ctx context.Context, id int64) (record.Record, bool, error) {
	if err := r.check(ctx, "find"); err != nil {
		return record.Record{}, false, err
	}
	val, closer, err := r.db.Get(repo.RecordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, wrap("find", err)
	}
	defer closer.Close()
	rec, err := repo.DecodeRecord(val)
	if err != nil {
		return record.Record{}, false, err
	}
	return rec, true, nil
}

func (r *repoImpl) FindAll(ctx context.Context) ([]record.Record, error) {
	if err := r.check(ctx, "list"); err != nil {
		return nil, err
	}
	upper := append([]byte{}, repo.KeyPrefix...)
	upper[len(upper)-1]++

	it, err := r.db.NewIter(&pebble.IterOptions{LowerBound: repo.KeyPrefix, UpperBound: upper})
	if err != nil {
		return nil, wrap("list", err)
	}
	recs := []record.Record{}
	for it.First(); it.Valid(); it.Next() {
		rec, err := repo.DecodeRecord(it.Value())
		if err != nil {
			_ = it.Close()
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := it.Close(); err != nil {
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

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	key := repo.RecordKey(rec.ID)
	ok, err := r.exists(key)
	if err != nil || !ok {
		return false, wrapIf("update", err)
	}
	if err := r.db.Set(key, val, pebble.Sync); err != nil {
		return false, wrap("update", err)
	}
	return true, nil
}

func (r *repoImpl) Delete(ctx context.Context, id int64) (bool, error) {
	if err := r.check(ctx, "delete"); err != nil {
		return false, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	key := repo.RecordKey(id)
	ok, err := r.exists(key)
	if err != nil || !ok {
		return false, wrapIf("delete", err)
	}
	if err := r.db.Delete(key, pebble.Sync); err != nil {
		return false, wrap("delete", err)
	}
	return true, nil
}

func (r *repoImpl) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.db.Close()
}

// wrapIf is wrap for a possibly nil error
func wrapIf(op string, err error) error {
	if err == nil {
		return nil
	}
	return wrap(op, err)
}
