package storage

import (
	"encoding/json"
	"errors"

	"telos/internal/stats"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills in the current schema and codec versions before a write.
func Stamp(record RunRecord) RunRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeRun(record RunRecord) ([]byte, error) {
	return json.Marshal(Stamp(record))
}

func DecodeRun(data []byte) (RunRecord, error) {
	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return RunRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return RunRecord{}, err
	}
	return record, nil
}

func EncodeHistory(history []stats.GenerationStats) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeHistory(data []byte) ([]stats.GenerationStats, error) {
	var history []stats.GenerationStats
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
