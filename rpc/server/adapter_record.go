package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/ValentinKolb/dRec/rpc/common"
)

// NewRecordServerAdapter returns the adapter that implements the record actions
func NewRecordServerAdapter() IRPCServerAdapter {
	return &recordServerAdapterImpl{}
}

type recordServerAdapterImpl struct{}

// fieldErrors maps every draft field to the code and message reported when
// INSERT finds it absent
var fieldErrors = map[record.DraftField]struct {
	code common.ErrorCode
	msg  string
}{
	record.FieldName:  {common.CodeInvalidName, "name is required and must not be blank"},
	record.FieldDob:   {common.CodeInvalidDob, "dob must be a date in YYYY-MM-DD format"},
	record.FieldGpa:   {common.CodeInvalidGpa, "gpa must be a number between 0.0 and 4.0"},
	record.FieldSex:   {common.CodeInvalidSex, "sex must be one of MALE, FEMALE, OTHER"},
	record.FieldMajor: {common.CodeInvalidMajor, "major is required and must not be blank"},
}

var unknownActionMessage = func() string {
	names := make([]string, len(common.Actions))
	for i, a := range common.Actions {
		names[i] = a.String()
	}
	return "supported actions: " + strings.Join(names, ", ")
}()

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (a *recordServerAdapterImpl) Handle(ctx context.Context, req *common.Request, repository repo.IRepository) (*common.Response, bool) {
	action := common.ParseAction(req.Action)

	// QUIT and unknown actions never touch the repository
	switch {
	case action == common.ActionQuit:
		return common.NewOKResponse("bye"), true
	case !action.Known():
		return common.NewErrorResponse(common.CodeUnknownAction,
			fmt.Sprintf("unknown action %q, %s", req.Action, unknownActionMessage)), false
	case repository == nil:
		return common.NewErrorResponse(common.CodeDBError, "repository is not available"), false
	}

	switch action {
	case common.ActionInsert:
		return a.insert(ctx, req.Payload, repository), false
	case common.ActionFind:
		return a.find(ctx, req.Payload, repository), false
	case common.ActionList:
		return a.list(ctx, repository), false
	case common.ActionUpdate:
		return a.update(ctx, req.Payload, repository), false
	default: // common.ActionDelete
		return a.delete(ctx, req.Payload, repository), false
	}
}

// --------------------------------------------------------------------------
// Actions
// --------------------------------------------------------------------------

func (a *recordServerAdapterImpl) insert(ctx context.Context, p common.Payload, repository repo.IRepository) *common.Response {
	if p.Empty() {
		return missingPayload(common.ActionInsert, "name, dob, gpa, sex and major")
	}

	draft := parseDraft(p)
	if field, absent := draft.FirstAbsent(); absent {
		fe := fieldErrors[field]
		return common.NewErrorResponse(fe.code, fe.msg)
	}

	rec := draft.Record()
	id, err := repository.Insert(ctx, rec)
	if err != nil {
		return storeFailure(err)
	}
	rec.ID = id

	return common.NewDataResponse(rec, fmt.Sprintf("student %d inserted", id))
}

func (a *recordServerAdapterImpl) find(ctx context.Context, p common.Payload, repository repo.IRepository) *common.Response {
	if p.Empty() {
		return missingPayload(common.ActionFind, "id")
	}

	rec, errResp := lookup(ctx, p, repository)
	if errResp != nil {
		return errResp
	}
	return common.NewDataResponse(rec, "")
}

func (a *recordServerAdapterImpl) list(ctx context.Context, repository repo.IRepository) *common.Response {
	recs, err := repository.FindAll(ctx)
	if err != nil {
		return storeFailure(err)
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return common.NewDataResponse(recs, fmt.Sprintf("%d student(s)", len(recs)))
}

func (a *recordServerAdapterImpl) update(ctx context.Context, p common.Payload, repository repo.IRepository) *common.Response {
	if p.Empty() {
		return missingPayload(common.ActionUpdate, "id and the fields to change")
	}

	current, errResp := lookup(ctx, p, repository)
	if errResp != nil {
		return errResp
	}

	// absent or invalid fields keep their current value
	merged := parseDraft(p).ApplyTo(current)

	changed, err := repository.Update(ctx, merged)
	if err != nil {
		return storeFailure(err)
	}
	if !changed {
		return common.NewErrorResponse(common.CodeUpdateFail, fmt.Sprintf("student %d was not updated", merged.ID))
	}
	return common.NewDataResponse(merged, fmt.Sprintf("student %d updated", merged.ID))
}

func (a *recordServerAdapterImpl) delete(ctx context.Context, p common.Payload, repository repo.IRepository) *common.Response {
	if p.Empty() {
		return missingPayload(common.ActionDelete, "id")
	}

	rec, errResp := lookup(ctx, p, repository)
	if errResp != nil {
		return errResp
	}

	changed, err := repository.Delete(ctx, rec.ID)
	if err != nil {
		return storeFailure(err)
	}
	if !changed {
		return common.NewErrorResponse(common.CodeDeleteFail, fmt.Sprintf("student %d was not deleted", rec.ID))
	}
	return common.NewOKResponse(fmt.Sprintf("student %d deleted", rec.ID))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// lookup resolves the id of the payload to the stored record.
// Exactly one of the return values is set.
func lookup(ctx context.Context, p common.Payload, repository repo.IRepository) (record.Record, *common.Response) {
	id, ok := parseID(p)
	if !ok {
		return record.Record{}, common.NewErrorResponse(common.CodeInvalidID, "id must be a non-negative integer")
	}

	rec, found, err := repository.FindByID(ctx, id)
	if err != nil {
		return record.Record{}, storeFailure(err)
	}
	if !found {
		return record.Record{}, common.NewErrorResponse(common.CodeIDNotExist, fmt.Sprintf("no student with id %d", id))
	}
	return rec, nil
}

func missingPayload(action common.Action, fields string) *common.Response {
	return common.NewErrorResponse(common.CodeMissingPayload,
		fmt.Sprintf("%s requires a payload with %s", action, fields))
}

// storeFailure maps any repository error to DB_ERROR, the session continues
func storeFailure(err error) *common.Response {
	Logger.Warningf("Repository failure: %v", err)
	return common.NewErrorResponse(common.CodeDBError, err.Error())
}
