package server

import (
	"encoding/json"
	"testing"

	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// payloadOf decodes a json object literal into a payload
func payloadOf(t *testing.T, s string) common.Payload {
	t.Helper()
	var p common.Payload
	require.NoError(t, json.Unmarshal([]byte(s), &p))
	return p
}

func TestParseID(t *testing.T) {
	tests := []struct {
		payload string
		id      int64
		ok      bool
	}{
		{`{"id": 12}`, 12, true},
		{`{"id": 0}`, 0, true},
		{`{"id": "12"}`, 12, true},
		{`{"id": " 7 "}`, 7, true},
		{`{"id": 5.0}`, 5, true},
		{`{"id": 5.5}`, 0, false},
		{`{"id": -1}`, 0, false},
		{`{"id": "-3"}`, 0, false},
		{`{"id": "abc"}`, 0, false},
		{`{"id": null}`, 0, false},
		{`{"id": true}`, 0, false},
		{`{"id": [1]}`, 0, false},
		{`{"id": 1e30}`, 0, false},
		{`{"name": "Ana"}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			id, ok := parseID(payloadOf(t, tt.payload))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.id, id)
			}
		})
	}
}

func TestParseGpa(t *testing.T) {
	tests := []struct {
		payload string
		gpa     float64
		present bool
	}{
		{`{"gpa": 3.2}`, 3.2, true},
		{`{"gpa": 0}`, 0, true},
		{`{"gpa": 0.0}`, 0, true},
		{`{"gpa": 4}`, 4, true},
		{`{"gpa": "3.5"}`, 3.5, true},
		{`{"gpa": 4.01}`, 0, false},
		{`{"gpa": 10}`, 0, false},
		{`{"gpa": -1}`, 0, false},
		{`{"gpa": "NaN"}`, 0, false},
		{`{"gpa": "Inf"}`, 0, false},
		{`{"gpa": "high"}`, 0, false},
		{`{"gpa": null}`, 0, false},
		{`{}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			gpa, present := parseGpa(payloadOf(t, tt.payload)).Get()
			assert.Equal(t, tt.present, present)
			if tt.present {
				assert.InDelta(t, tt.gpa, gpa, 1e-9)
			}
		})
	}
}

func TestParseDraft(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		d := parseDraft(payloadOf(t, `{"name":"  Ana ","dob":"2001-05-03","gpa":3.2,"sex":"female","major":" CS"}`))
		_, absent := d.FirstAbsent()
		require.False(t, absent)

		rec := d.Record()
		assert.Equal(t, "Ana", rec.Name)
		assert.Equal(t, record.MustDate("2001-05-03"), rec.Dob)
		assert.Equal(t, 3.2, rec.Gpa)
		assert.Equal(t, record.SexFemale, rec.Sex)
		assert.Equal(t, "CS", rec.Major)
	})

	t.Run("InvalidValuesAreAbsent", func(t *testing.T) {
		d := parseDraft(payloadOf(t, `{"name":"   ","dob":"03/05/2001","gpa":"x","sex":"unknown","major":42}`))
		assert.False(t, d.Name.Present())
		assert.False(t, d.Dob.Present())
		assert.False(t, d.Gpa.Present())
		assert.False(t, d.Sex.Present())
		assert.False(t, d.Major.Present())
	})

	t.Run("Dates", func(t *testing.T) {
		assert.True(t, parseDob(payloadOf(t, `{"dob":"2000-02-29"}`)).Present())
		assert.False(t, parseDob(payloadOf(t, `{"dob":"2001-02-29"}`)).Present())
		assert.False(t, parseDob(payloadOf(t, `{"dob":"2001-13-01"}`)).Present())
		assert.False(t, parseDob(payloadOf(t, `{"dob":20010503}`)).Present())
	})

	t.Run("Sex", func(t *testing.T) {
		for _, s := range []string{"MALE", "male", " Female ", "other"} {
			assert.True(t, parseSex(payloadOf(t, `{"sex":"`+s+`"}`)).Present(), s)
		}
		assert.False(t, parseSex(payloadOf(t, `{"sex":"M"}`)).Present())
	})

	t.Run("FirstAbsentOrder", func(t *testing.T) {
		d := parseDraft(payloadOf(t, `{"name":"Ana","gpa":10,"sex":"X"}`))
		field, absent := d.FirstAbsent()
		require.True(t, absent)
		assert.Equal(t, record.FieldDob, field)
	})
}
