package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RepoFactory is a function that creates a new, empty repository instance
type RepoFactory func(t *testing.T) repo.IRepository

// RunRepositoryTests runs the conformance test suite for an IRepository implementation.
func RunRepositoryTests(t *testing.T, name string, factory RepoFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Find", func(t *testing.T) {
			testInsertFind(t, factory(t))
		})

		t.Run("IdsUnique", func(t *testing.T) {
			testIdsUnique(t, factory(t))
		})

		t.Run("FindAll", func(t *testing.T) {
			testFindAll(t, factory(t))
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("RejectsInvalid", func(t *testing.T) {
			testRejectsInvalid(t, factory(t))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory(t))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// SampleRecord returns a valid record without id
func SampleRecord(name string) record.Record {
	return record.Record{
		Name:  name,
		Dob:   record.MustDate("2001-05-03"),
		Gpa:   3.2,
		Sex:   record.SexFemale,
		Major: "CS",
	}
}

func insert(t *testing.T, r repo.IRepository, rec record.Record) int64 {
	t.Helper()
	id, err := r.Insert(context.Background(), rec)
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertFind(t *testing.T, r repo.IRepository) {
	defer r.Close()
	ctx := context.Background()

	in := SampleRecord("Ana")
	in.ID = 999 // ignored by Insert
	id := insert(t, r, in)

	got, found, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)

	want := in
	want.ID = id
	assert.Equal(t, want, got)

	_, found, err = r.FindByID(ctx, id+1000)
	require.NoError(t, err)
	assert.False(t, found, "unknown id must not be found")
}

func testIdsUnique(t *testing.T, r repo.IRepository) {
	defer r.Close()

	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 50; i++ {
		id := insert(t, r, SampleRecord(fmt.Sprintf("s-%d", i)))
		assert.False(t, seen[id], "id %d reused", id)
		assert.Greater(t, id, last, "ids must increase")
		seen[id] = true
		last = id
	}

	// deleting the newest record must not make its id available again
	_, err := r.Delete(context.Background(), last)
	require.NoError(t, err)
	next := insert(t, r, SampleRecord("after-delete"))
	assert.Greater(t, next, last)
}

func testFindAll(t *testing.T, r repo.IRepository) {
	defer r.Close()
	ctx := context.Background()

	recs, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, recs, "empty store must return an empty, non-nil slice")
	assert.Empty(t, recs)

	const n, m = 10, 4
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, insert(t, r, SampleRecord(fmt.Sprintf("s-%d", i))))
	}
	for _, id := range ids[:m] {
		changed, err := r.Delete(ctx, id)
		require.NoError(t, err)
		require.True(t, changed)
	}

	recs, err = r.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, n-m)
	for i, rec := range recs {
		assert.Equal(t, ids[m+i], rec.ID)
		assert.Equal(t, fmt.Sprintf("s-%d", m+i), rec.Name)
	}
}

func testUpdate(t *testing.T, r repo.IRepository) {
	defer r.Close()
	ctx := context.Background()

	id := insert(t, r, SampleRecord("Ana"))
	rec, _, err := r.FindByID(ctx, id)
	require.NoError(t, err)

	rec.Gpa = 0 // zero is a legitimate value
	rec.Major = "Math"
	changed, err := r.Update(ctx, rec)
	require.NoError(t, err)
	assert.True(t, changed)

	got, found, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)

	missing := rec
	missing.ID = id + 1000
	changed, err = r.Update(ctx, missing)
	require.NoError(t, err)
	assert.False(t, changed, "update of unknown id must report no change")

	_, found, err = r.FindByID(ctx, missing.ID)
	require.NoError(t, err)
	assert.False(t, found, "update must not create records")
}

func testDelete(t *testing.T, r repo.IRepository) {
	defer r.Close()
	ctx := context.Background()

	id := insert(t, r, SampleRecord("Ana"))
	changed, err := r.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)

	_, found, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	changed, err = r.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed, "second delete must report no change")
}

func testRejectsInvalid(t *testing.T, r repo.IRepository) {
	defer r.Close()
	ctx := context.Background()

	bad := SampleRecord("Ana")
	bad.Gpa = 10
	_, err := r.Insert(ctx, bad)
	require.Error(t, err)
	assert.True(t, repo.IsStoreError(err))

	recs, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs, "rejected insert must not create a record")
}

func testConcurrent(t *testing.T, r repo.IRepository) {
	defer r.Close()
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	ids := make(chan int64, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := r.Insert(ctx, SampleRecord(fmt.Sprintf("w%d-%d", w, i)))
				if !assert.NoError(t, err) {
					return
				}
				ids <- id
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d handed out twice", id)
		seen[id] = true
	}
	recs, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, workers*perWorker)
}

func testClosed(t *testing.T, r repo.IRepository) {
	id := insert(t, r, SampleRecord("Ana"))
	require.NoError(t, r.Close())

	_, _, err := r.FindByID(context.Background(), id)
	require.Error(t, err)
	var storeErr *repo.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, repo.RetCClosed, storeErr.Code)

	assert.NoError(t, r.Close(), "closing twice must be harmless")
}
