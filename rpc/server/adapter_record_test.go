package server

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/ValentinKolb/dRec/lib/repo/memrepo"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Repositories
// --------------------------------------------------------------------------

// countingRepo counts every call that reaches the wrapped repository
type countingRepo struct {
	repo.IRepository
	calls atomic.Int64
}

func (c *countingRepo) Insert(ctx context.Context, rec record.Record) (int64, error) {
	c.calls.Add(1)
	return c.IRepository.Insert(ctx, rec)
}

func (c *countingRepo) FindByID(ctx context.Context, id int64) (record.Record, bool, error) {
	c.calls.Add(1)
	return c.IRepository.FindByID(ctx, id)
}

func (c *countingRepo) FindAll(ctx context.Context) ([]record.Record, error) {
	c.calls.Add(1)
	return c.IRepository.FindAll(ctx)
}

func (c *countingRepo) Update(ctx context.Context, rec record.Record) (bool, error) {
	c.calls.Add(1)
	return c.IRepository.Update(ctx, rec)
}

func (c *countingRepo) Delete(ctx context.Context, id int64) (bool, error) {
	c.calls.Add(1)
	return c.IRepository.Delete(ctx, id)
}

// failingRepo fails every operation
type failingRepo struct{}

var errBackend = repo.NewError(repo.RetCInternalError, "connection to store lost")

func (failingRepo) Insert(context.Context, record.Record) (int64, error) { return 0, errBackend }
func (failingRepo) FindByID(context.Context, int64) (record.Record, bool, error) {
	return record.Record{}, false, errBackend
}
func (failingRepo) FindAll(context.Context) ([]record.Record, error) { return nil, errBackend }
func (failingRepo) Update(context.Context, record.Record) (bool, error) { return false, errBackend }
func (failingRepo) Delete(context.Context, int64) (bool, error) { return false, errBackend }
func (failingRepo) Close() error { return nil }

// staleRepo finds every record but never changes anything, like a row that
// vanished between lookup and write
type staleRepo struct {
	failingRepo
}

func (staleRepo) FindByID(_ context.Context, id int64) (record.Record, bool, error) {
	rec := sampleRecord()
	rec.ID = id
	return rec, true, nil
}
func (staleRepo) Update(context.Context, record.Record) (bool, error) { return false, nil }
func (staleRepo) Delete(context.Context, int64) (bool, error) { return false, nil }

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

const anaPayload = `{"name":"Ana","dob":"2001-05-03","gpa":3.2,"sex":"FEMALE","major":"CS"}`

func sampleRecord() record.Record {
	return record.Record{Name: "Ana", Dob: record.MustDate("2001-05-03"), Gpa: 3.2, Sex: record.SexFemale, Major: "CS"}
}

func handle(t *testing.T, r repo.IRepository, action, payload string) (*common.Response, bool) {
	t.Helper()
	req := &common.Request{Action: action}
	if payload != "" {
		req.Payload = payloadOf(t, payload)
	}
	return NewRecordServerAdapter().Handle(context.Background(), req, r)
}

func requireOK(t *testing.T, resp *common.Response) {
	t.Helper()
	require.Equal(t, common.StatusOK, resp.Status, "%s: %s", resp.Code, resp.Message)
}

func requireCode(t *testing.T, resp *common.Response, code common.ErrorCode) {
	t.Helper()
	require.Equal(t, common.StatusError, resp.Status)
	require.Equal(t, code, resp.Code, resp.Message)
	require.NotEmpty(t, resp.Message)
}

func insertAna(t *testing.T, r repo.IRepository) record.Record {
	t.Helper()
	resp, _ := handle(t, r, "INSERT", anaPayload)
	requireOK(t, resp)
	rec, ok := resp.Data.(record.Record)
	require.True(t, ok)
	return rec
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRecordAdapter(t *testing.T) {
	t.Run("InsertAndFind", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		rec := insertAna(t, r)
		assert.Positive(t, rec.ID)

		resp, quit := handle(t, r, "find", `{"id":`+jsonInt(rec.ID)+`}`)
		requireOK(t, resp)
		assert.False(t, quit)
		found := resp.Data.(record.Record)
		assert.Equal(t, rec, found)
		assert.Equal(t, "Ana", found.Name)
	})

	t.Run("ActionIsTrimmedAndCaseInsensitive", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		resp, _ := handle(t, r, "  list ", "")
		requireOK(t, resp)
	})

	t.Run("InsertFieldErrors", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
			code    common.ErrorCode
		}{
			{"MissingName", `{"dob":"2001-05-03","gpa":3.2,"sex":"FEMALE","major":"CS"}`, common.CodeInvalidName},
			{"BlankName", `{"name":" ","dob":"2001-05-03","gpa":3.2,"sex":"FEMALE","major":"CS"}`, common.CodeInvalidName},
			{"BadDob", `{"name":"Ana","dob":"03.05.2001","gpa":3.2,"sex":"FEMALE","major":"CS"}`, common.CodeInvalidDob},
			{"GpaTooHigh", `{"name":"Ana","dob":"2001-05-03","gpa":10,"sex":"FEMALE","major":"CS"}`, common.CodeInvalidGpa},
			{"GpaNegative", `{"name":"Ana","dob":"2001-05-03","gpa":-1,"sex":"FEMALE","major":"CS"}`, common.CodeInvalidGpa},
			{"GpaMissing", `{"name":"Ana","dob":"2001-05-03","sex":"FEMALE","major":"CS"}`, common.CodeInvalidGpa},
			{"BadSex", `{"name":"Ana","dob":"2001-05-03","gpa":3.2,"sex":"F","major":"CS"}`, common.CodeInvalidSex},
			{"BlankMajor", `{"name":"Ana","dob":"2001-05-03","gpa":3.2,"sex":"FEMALE","major":""}`, common.CodeInvalidMajor},
			{"FirstFailingFieldWins", `{"name":"","dob":"x","gpa":10,"sex":"F","major":""}`, common.CodeInvalidName},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := &countingRepo{IRepository: memrepo.NewMemoryRepository()}
				resp, _ := handle(t, r, "INSERT", tt.payload)
				requireCode(t, resp, tt.code)
				assert.Zero(t, r.calls.Load(), "no store call for invalid input")
			})
		}
	})

	t.Run("InsertZeroGpa", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		resp, _ := handle(t, r, "INSERT", `{"name":"Bo","dob":"1999-12-31","gpa":0,"sex":"male","major":"Math"}`)
		requireOK(t, resp)
		rec := resp.Data.(record.Record)
		assert.Equal(t, 0.0, rec.Gpa)
		assert.Equal(t, record.SexMale, rec.Sex)
	})

	t.Run("MissingPayload", func(t *testing.T) {
		for _, action := range []string{"INSERT", "FIND", "UPDATE", "DELETE"} {
			for _, payload := range []string{"", "{}"} {
				r := &countingRepo{IRepository: memrepo.NewMemoryRepository()}
				resp, _ := handle(t, r, action, payload)
				requireCode(t, resp, common.CodeMissingPayload)
				assert.Contains(t, resp.Message, action)
				assert.Zero(t, r.calls.Load(), "no store call without payload")
			}
		}
	})

	t.Run("InvalidID", func(t *testing.T) {
		r := &countingRepo{IRepository: memrepo.NewMemoryRepository()}
		for _, action := range []string{"FIND", "UPDATE", "DELETE"} {
			for _, payload := range []string{`{"id":-1}`, `{"id":"x"}`, `{"name":"Ana"}`, `{"id":1.5}`} {
				resp, _ := handle(t, r, action, payload)
				requireCode(t, resp, common.CodeInvalidID)
			}
		}
		assert.Zero(t, r.calls.Load())
	})

	t.Run("NotFound", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		for _, action := range []string{"FIND", "UPDATE", "DELETE"} {
			resp, _ := handle(t, r, action, `{"id":999,"gpa":1}`)
			requireCode(t, resp, common.CodeIDNotExist)
		}
		// 0 is a valid id that never exists
		resp, _ := handle(t, r, "FIND", `{"id":0}`)
		requireCode(t, resp, common.CodeIDNotExist)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		rec := insertAna(t, r)

		resp, _ := handle(t, r, "UPDATE", `{"id":`+jsonInt(rec.ID)+`,"gpa":3.9,"name":"  ","sex":"robot"}`)
		requireOK(t, resp)

		resp, _ = handle(t, r, "FIND", `{"id":`+jsonInt(rec.ID)+`}`)
		requireOK(t, resp)
		found := resp.Data.(record.Record)

		want := rec
		want.Gpa = 3.9
		assert.Equal(t, want, found)
	})

	t.Run("UpdateToZeroGpa", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		rec := insertAna(t, r)

		resp, _ := handle(t, r, "UPDATE", `{"id":`+jsonInt(rec.ID)+`,"gpa":0}`)
		requireOK(t, resp)
		assert.Equal(t, 0.0, resp.Data.(record.Record).Gpa)

		// an absent gpa leaves the 0 alone
		resp, _ = handle(t, r, "UPDATE", `{"id":`+jsonInt(rec.ID)+`,"major":"Physics"}`)
		requireOK(t, resp)
		updated := resp.Data.(record.Record)
		assert.Equal(t, 0.0, updated.Gpa)
		assert.Equal(t, "Physics", updated.Major)
	})

	t.Run("DeleteThenFind", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()
		rec := insertAna(t, r)

		resp, _ := handle(t, r, "DELETE", `{"id":"`+jsonInt(rec.ID)+`"}`)
		requireOK(t, resp)

		resp, _ = handle(t, r, "FIND", `{"id":`+jsonInt(rec.ID)+`}`)
		requireCode(t, resp, common.CodeIDNotExist)
	})

	t.Run("ListCountsInsertsMinusDeletes", func(t *testing.T) {
		r := memrepo.NewMemoryRepository()

		resp, _ := handle(t, r, "LIST", "")
		requireOK(t, resp)
		assert.Empty(t, resp.Data)
		assert.NotNil(t, resp.Data.([]record.Record))

		var ids []int64
		for i := 0; i < 5; i++ {
			ids = append(ids, insertAna(t, r).ID)
		}
		for _, id := range ids[:2] {
			resp, _ := handle(t, r, "DELETE", `{"id":`+jsonInt(id)+`}`)
			requireOK(t, resp)
		}

		resp, _ = handle(t, r, "LIST", "")
		requireOK(t, resp)
		recs := resp.Data.([]record.Record)
		assert.Len(t, recs, 3)
		for _, rec := range recs {
			assert.Equal(t, "Ana", rec.Name)
		}
	})

	t.Run("UnknownAction", func(t *testing.T) {
		r := &countingRepo{IRepository: memrepo.NewMemoryRepository()}
		for _, action := range []string{"i-dont-know", "", "42", "SELECT"} {
			resp, quit := handle(t, r, action, anaPayload)
			requireCode(t, resp, common.CodeUnknownAction)
			assert.False(t, quit)
		}
		assert.Zero(t, r.calls.Load())
	})

	t.Run("Quit", func(t *testing.T) {
		r := &countingRepo{IRepository: memrepo.NewMemoryRepository()}
		resp, quit := handle(t, r, "quit", `{"ignored":true}`)
		requireOK(t, resp)
		assert.True(t, quit)
		assert.Zero(t, r.calls.Load())
	})

	t.Run("StoreFailures", func(t *testing.T) {
		r := failingRepo{}
		cases := map[string]string{
			"INSERT": anaPayload,
			"FIND":   `{"id":1}`,
			"LIST":   "",
			"UPDATE": `{"id":1,"gpa":2}`,
			"DELETE": `{"id":1}`,
		}
		for action, payload := range cases {
			resp, quit := handle(t, r, action, payload)
			requireCode(t, resp, common.CodeDBError)
			assert.Contains(t, resp.Message, "connection to store lost")
			assert.False(t, quit, "store failures never end the session")
		}
	})

	t.Run("NoRowChanged", func(t *testing.T) {
		r := staleRepo{}
		resp, _ := handle(t, r, "UPDATE", `{"id":3,"gpa":2}`)
		requireCode(t, resp, common.CodeUpdateFail)

		resp, _ = handle(t, r, "DELETE", `{"id":3}`)
		requireCode(t, resp, common.CodeDeleteFail)
	})

	t.Run("NilRepository", func(t *testing.T) {
		resp, _ := handle(t, nil, "LIST", "")
		requireCode(t, resp, common.CodeDBError)
	})
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
