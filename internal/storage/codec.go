package storage

import (
	"encoding/json"
	"errors"

	"proteus/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSetup(s model.Setup) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSetup(data []byte) (model.Setup, error) {
	var setup model.Setup
	if err := json.Unmarshal(data, &setup); err != nil {
		return model.Setup{}, err
	}
	if err := checkVersion(setup.VersionedRecord); err != nil {
		return model.Setup{}, err
	}
	if setup.Morphing != nil {
		if err := checkVersion(setup.Morphing.VersionedRecord); err != nil {
			return model.Setup{}, err
		}
	}
	return setup, nil
}

func EncodeScan(s model.ScanRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeScan(data []byte) (model.ScanRecord, error) {
	var scan model.ScanRecord
	if err := json.Unmarshal(data, &scan); err != nil {
		return model.ScanRecord{}, err
	}
	if err := checkVersion(scan.VersionedRecord); err != nil {
		return model.ScanRecord{}, err
	}
	return scan, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
