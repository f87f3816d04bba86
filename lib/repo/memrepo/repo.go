package memrepo

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/puzpuzpuz/xsync/v3"
)

type repoImpl struct {
	data   *xsync.MapOf[int64, record.Record]
	index  atomic.Int64
	closed atomic.Bool
}

// NewMemoryRepository creates a new in-memory repository instance.
// Records are not persisted and are lost when the process exits.
func NewMemoryRepository() repo.IRepository {
	return &repoImpl{
		data: xsync.NewMapOf[int64, record.Record](),
	}
}

// incAndGetIndex increments the id sequence and returns the new value.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (r *repoImpl) incAndGetIndex() int64 {
	return r.index.Add(1)
}

// check returns an error if the repository is closed or ctx is done
func (r *repoImpl) check(ctx context.Context) error {
	if r.closed.Load() {
		return repo.NewError(repo.RetCClosed, "repository is closed")
	}
	if err := ctx.Err(); err != nil {
		return repo.WrapError(repo.RetCInternalError, "operation aborted", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see repo/interface.go)
// --------------------------------------------------------------------------

func (r *repoImpl) Insert(ctx context.Context, rec record.Record) (int64, error) {
	if err := r.check(ctx); err != nil {
		return 0, err
	}
	if err := repo.CheckRecord(rec); err != nil {
		return 0, err
	}
	rec.ID = r.incAndGetIndex()
	r.data.Store(rec.ID, rec)
	return rec.ID, nil
}

func (r *repoImpl) FindByID(ctx context.Context, id int64) (record.Record, bool, error) {
	if err := r.check(ctx); err != nil {
		return record.Record{}, false, err
	}
	rec, ok := r.data.Load(id)
	return rec, ok, nil
}

func (r *repoImpl) FindAll(ctx context.Context) ([]record.Record, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}
	recs := make([]record.Record, 0, r.data.Size())
	r.data.Range(func(_ int64, rec record.Record) bool {
		recs = append(recs, rec)
		return true
	})
	// ids are allocated in insertion order
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func (r *repoImpl) Update(ctx context.Context, rec record.Record) (bool, error) {
	if err := r.check(ctx); err != nil {
		return false, err
	}
	if err := repo.CheckRecord(rec); err != nil {
		return false, err
	}
	changed := false
	r.data.Compute(rec.ID, func(_ record.Record, loaded bool) (record.Record, bool) {
		changed = loaded
		// delete=true on a missing key keeps it missing
		return rec, !loaded
	})
	return changed, nil
}

func (r *repoImpl) Delete(ctx context.Context, id int64) (bool, error) {
	if err := r.check(ctx); err != nil {
		return false, err
	}
	_, loaded := r.data.LoadAndDelete(id)
	return loaded, nil
}

func (r *repoImpl) Close() error {
	r.closed.Store(true)
	return nil
}
