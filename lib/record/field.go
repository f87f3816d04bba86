package record

// Field is an optional value. The zero Field is absent.
type Field[T any] struct {
	value T
	ok    bool
}

// Some returns a present Field holding v
func Some[T any](v T) Field[T] {
	return Field[T]{value: v, ok: true}
}

// None returns an absent Field
func None[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it is present
func (f Field[T]) Get() (T, bool) {
	return f.value, f.ok
}

// Present reports whether the field holds a value
func (f Field[T]) Present() bool {
	return f.ok
}

// Or returns the value if present, otherwise fallback
func (f Field[T]) Or(fallback T) T {
	if f.ok {
		return f.value
	}
	return fallback
}

// Draft holds record fields parsed from untrusted input.
// Absent fields were either not supplied or failed to parse.
type Draft struct {
	Name  Field[string]
	Dob   Field[Date]
	Gpa   Field[float64]
	Sex   Field[Sex]
	Major Field[string]
}

// DraftField names a Draft field, in the order Insert checks them
type DraftField int

const (
	FieldName DraftField = iota
	FieldDob
	FieldGpa
	FieldSex
	FieldMajor
)

func (f DraftField) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldDob:
		return "dob"
	case FieldGpa:
		return "gpa"
	case FieldSex:
		return "sex"
	case FieldMajor:
		return "major"
	default:
		return "unknown"
	}
}

// FirstAbsent returns the first absent field in check order.
// The boolean is false if every field is present.
func (d Draft) FirstAbsent() (DraftField, bool) {
	switch {
	case !d.Name.Present():
		return FieldName, true
	case !d.Dob.Present():
		return FieldDob, true
	case !d.Gpa.Present():
		return FieldGpa, true
	case !d.Sex.Present():
		return FieldSex, true
	case !d.Major.Present():
		return FieldMajor, true
	}
	return 0, false
}

// Record builds a new record from a complete draft. Call FirstAbsent first,
// absent fields end up as zero values.
func (d Draft) Record() Record {
	return d.ApplyTo(Record{})
}

// ApplyTo overwrites the fields of r that are present in d (partial update)
func (d Draft) ApplyTo(r Record) Record {
	r.Name = d.Name.Or(r.Name)
	r.Dob = d.Dob.Or(r.Dob)
	r.Gpa = d.Gpa.Or(r.Gpa)
	r.Sex = d.Sex.Or(r.Sex)
	r.Major = d.Major.Or(r.Major)
	return r
}
