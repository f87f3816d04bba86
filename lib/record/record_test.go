package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Record {
	return Record{
		ID:    1,
		Name:  "Ana",
		Dob:   MustDate("2001-05-03"),
		Gpa:   3.2,
		Sex:   SexFemale,
		Major: "CS",
	}
}

func TestParseSex(t *testing.T) {
	tests := []struct {
		in   string
		want Sex
		ok   bool
	}{
		{"MALE", SexMale, true},
		{"female", SexFemale, true},
		{"  Other ", SexOther, true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSex(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2001-05-03")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2001, Month: time.May, Day: 3}, d)
	assert.Equal(t, "2001-05-03", d.String())

	for _, bad := range []string{"", "03/05/2001", "2001-13-01", "2001-02-30", "yesterday"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestRecordJSON(t *testing.T) {
	b, err := json.Marshal(validRecord())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Ana","dob":"2001-05-03","gpa":3.2,"sex":"FEMALE","major":"CS"}`, string(b))

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, validRecord(), back)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validRecord()))

	zeroGpa := validRecord()
	zeroGpa.Gpa = 0
	assert.NoError(t, Validate(zeroGpa), "gpa 0.0 is a legitimate value")

	cases := map[string]func(r *Record){
		"blank name":   func(r *Record) { r.Name = "   " },
		"zero dob":     func(r *Record) { r.Dob = Date{} },
		"gpa too high": func(r *Record) { r.Gpa = 4.01 },
		"negative gpa": func(r *Record) { r.Gpa = -1 },
		"bad sex":      func(r *Record) { r.Sex = "robot" },
		"empty major":  func(r *Record) { r.Major = "" },
		"negative id":  func(r *Record) { r.ID = -3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := validRecord()
			mutate(&r)
			assert.Error(t, Validate(r))
		})
	}
}

func TestDraft(t *testing.T) {
	t.Run("FirstAbsent follows check order", func(t *testing.T) {
		d := Draft{Dob: Some(MustDate("2000-01-01")), Sex: Some(SexMale)}
		f, ok := d.FirstAbsent()
		assert.True(t, ok)
		assert.Equal(t, FieldName, f)

		d.Name = Some("Bob")
		f, ok = d.FirstAbsent()
		assert.True(t, ok)
		assert.Equal(t, FieldGpa, f)

		d.Gpa = Some(0.0)
		d.Major = Some("Math")
		_, ok = d.FirstAbsent()
		assert.False(t, ok)
	})

	t.Run("zero gpa is present", func(t *testing.T) {
		d := Draft{Gpa: Some(0.0)}
		v, ok := d.Gpa.Get()
		assert.True(t, ok)
		assert.Equal(t, 0.0, v)
		assert.False(t, None[float64]().Present())
	})

	t.Run("ApplyTo only overwrites present fields", func(t *testing.T) {
		orig := validRecord()
		got := Draft{Gpa: Some(3.9)}.ApplyTo(orig)
		want := orig
		want.Gpa = 3.9
		assert.Equal(t, want, got)

		got = Draft{Gpa: Some(0.0), Major: Some("Physics")}.ApplyTo(orig)
		assert.Equal(t, 0.0, got.Gpa)
		assert.Equal(t, "Physics", got.Major)
		assert.Equal(t, orig.Name, got.Name)
	})
}
