package memrepo

import (
	"testing"

	"github.com/ValentinKolb/dRec/lib/repo"
	repotesting "github.com/ValentinKolb/dRec/lib/repo/testing"
)

func Test(t *testing.T) {
	repotesting.RunRepositoryTests(t, "MemoryRepository", func(t *testing.T) repo.IRepository {
		return NewMemoryRepository()
	})
}
