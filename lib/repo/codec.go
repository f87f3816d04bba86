package repo

import (
	"encoding/binary"
	"encoding/json"

	"github.com/ValentinKolb/dRec/lib/record"
)

// KeyPrefix is the prefix of all record keys in the key-value backends
var KeyPrefix = []byte("rec/")

// RecordKey returns the key of a record. Ids are encoded big endian so that
// lexicographic key order equals numeric id order.
func RecordKey(id int64) []byte {
	key := make([]byte, len(KeyPrefix)+8)
	copy(key, KeyPrefix)
	binary.BigEndian.PutUint64(key[len(KeyPrefix):], uint64(id))
	return key
}

// EncodeRecord serializes a record for the key-value backends
func EncodeRecord(rec record.Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, WrapError(RetCInternalError, "failed to encode record", err)
	}
	return b, nil
}

// DecodeRecord deserializes a record written by EncodeRecord
func DecodeRecord(b []byte) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return record.Record{}, WrapError(RetCCorrupted, "failed to decode record", err)
	}
	return rec, nil
}

// CheckRecord validates rec before it is written
func CheckRecord(rec record.Record) error {
	if err := record.Validate(rec); err != nil {
		return WrapError(RetCInvalidRecord, "record rejected by store", err)
	}
	return nil
}
