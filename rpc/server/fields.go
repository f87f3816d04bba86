package server

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/rpc/common"
)

// --------------------------------------------------------------------------
// Payload field parsing
// --------------------------------------------------------------------------

// Payload field names
const (
	fieldID    = "id"
	fieldName  = "name"
	fieldDob   = "dob"
	fieldGpa   = "gpa"
	fieldSex   = "sex"
	fieldMajor = "major"
)

// parseDraft reads the five record fields from an untrusted payload.
// A field that is missing, null or fails to parse is absent in the draft.
func parseDraft(p common.Payload) record.Draft {
	return record.Draft{
		Name:  parseText(p, fieldName),
		Dob:   parseDob(p),
		Gpa:   parseGpa(p),
		Sex:   parseSex(p),
		Major: parseText(p, fieldMajor),
	}
}

// parseID returns the record id of the payload. Integers and integer strings are
// accepted, ok is false if the id is missing, not integral or negative.
func parseID(p common.Payload) (int64, bool) {
	switch v := scalar(p, fieldID).(type) {
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, id >= 0
		}
		// 5.0 is integral too
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) || f < 0 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id, err == nil && id >= 0
	default:
		return 0, false
	}
}

// parseText accepts strings that are not blank, the value is stored trimmed
func parseText(p common.Payload, field string) record.Field[string] {
	s, ok := scalar(p, field).(string)
	if !ok {
		return record.None[string]()
	}
	if s = strings.TrimSpace(s); s == "" {
		return record.None[string]()
	}
	return record.Some(s)
}

func parseDob(p common.Payload) record.Field[record.Date] {
	s, ok := scalar(p, fieldDob).(string)
	if !ok {
		return record.None[record.Date]()
	}
	d, err := record.ParseDate(s)
	if err != nil {
		return record.None[record.Date]()
	}
	return record.Some(d)
}

// parseGpa accepts numbers and numeric strings in [0, 4]
func parseGpa(p common.Payload) record.Field[float64] {
	var gpa float64
	var err error

	switch v := scalar(p, fieldGpa).(type) {
	case json.Number:
		gpa, err = v.Float64()
	case string:
		gpa, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return record.None[float64]()
	}

	if err != nil || math.IsNaN(gpa) || gpa < 0 || gpa > 4 {
		return record.None[float64]()
	}
	return record.Some(gpa)
}

func parseSex(p common.Payload) record.Field[record.Sex] {
	s, ok := scalar(p, fieldSex).(string)
	if !ok {
		return record.None[record.Sex]()
	}
	sex, ok := record.ParseSex(s)
	if !ok {
		return record.None[record.Sex]()
	}
	return record.Some(sex)
}

// scalar decodes a payload value into a string or json.Number.
// Objects, arrays, booleans, null and missing values yield nil.
func scalar(p common.Payload, field string) any {
	raw, ok := p.Get(field)
	if !ok {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	switch v.(type) {
	case string, json.Number:
		return v
	default:
		return nil
	}
}
