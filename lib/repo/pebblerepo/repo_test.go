package pebblerepo

import (
	"context"
	"testing"

	"github.com/ValentinKolb/dRec/lib/repo"
	repotesting "github.com/ValentinKolb/dRec/lib/repo/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	repotesting.RunRepositoryTests(t, "PebbleRepository", func(t *testing.T) repo.IRepository {
		r, err := NewPebbleRepository(Config{DBPath: "db", InMemory: true})
		require.NoError(t, err)
		return r
	})
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	r, err := NewPebbleRepository(Config{DBPath: dir})
	require.NoError(t, err)
	first, err := r.Insert(ctx, repotesting.SampleRecord("Ana"))
	require.NoError(t, err)
	second, err := r.Insert(ctx, repotesting.SampleRecord("Bob"))
	require.NoError(t, err)
	_, err = r.Delete(ctx, second)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = NewPebbleRepository(Config{DBPath: dir})
	require.NoError(t, err)
	defer r.Close()

	recs, err := r.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, first, recs[0].ID)

	next, err := r.Insert(ctx, repotesting.SampleRecord("Cid"))
	require.NoError(t, err)
	assert.Greater(t, next, second, "deleted ids must not be reused after reopening")
}
