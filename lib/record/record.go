package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Sex
// --------------------------------------------------------------------------

// Sex is the fixed category enumeration of a record
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexOther  Sex = "OTHER"
)

// Sexes lists all valid Sex values in declaration order
var Sexes = []Sex{SexMale, SexFemale, SexOther}

// ParseSex matches s case-insensitively (after trimming) against the enumeration
func ParseSex(s string) (Sex, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, v := range Sexes {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// --------------------------------------------------------------------------
// Date
// --------------------------------------------------------------------------

// DateLayout is the only accepted date format
const DateLayout = time.DateOnly

// Date is a calendar date without time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses s in the YYYY-MM-DD format.
// Leading and trailing whitespace is ignored.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DateOf returns the date part of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// MustDate is like ParseDate but panics on invalid input, intended for tests and literals
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero date
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// --------------------------------------------------------------------------
// Record
// --------------------------------------------------------------------------

// Record is a persisted student record.
// The ID is assigned by the repository on insert and never changes afterwards.
type Record struct {
	ID    int64   `json:"id" validate:"gte=0"`
	Name  string  `json:"name" validate:"required,notblank"`
	Dob   Date    `json:"dob" validate:"required"`
	Gpa   float64 `json:"gpa" validate:"gte=0,lte=4"`
	Sex   Sex     `json:"sex" validate:"required,oneof=MALE FEMALE OTHER"`
	Major string  `json:"major" validate:"required,notblank"`
}

func (r Record) String() string {
	return fmt.Sprintf("Record{id=%d, name=%q, dob=%s, gpa=%.2f, sex=%s, major=%q}",
		r.ID, r.Name, r.Dob, r.Gpa, r.Sex, r.Major)
}
