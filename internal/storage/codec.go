package storage

import (
	"encoding/json"
	"errors"

	"github.com/triathematician/blaisemath-sub005/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeBatch(b model.BatchRecord) ([]byte, error) {
	return json.Marshal(b)
}

func DecodeBatch(data []byte) (model.BatchRecord, error) {
	var batch model.BatchRecord
	if err := json.Unmarshal(data, &batch); err != nil {
		return model.BatchRecord{}, err
	}
	if err := checkVersion(batch.VersionedRecord); err != nil {
		return model.BatchRecord{}, err
	}
	return batch, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
