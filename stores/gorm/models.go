//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/relaykit/pnba"
)

// JSONMap stores an open-ended JSON object in a single column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, m)
}

// RecordModel is the GORM model for registry records, one row per phone
// number.
type RecordModel struct {
	PhoneNumber string    `gorm:"primaryKey;size:32"`
	Data        JSONMap   `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (RecordModel) TableName() string {
	return "registry_records"
}

func (m *RecordModel) ToRecord() pnba.RegistryRecord {
	if m.Data == nil {
		return pnba.RegistryRecord{}
	}
	return pnba.RegistryRecord(m.Data)
}
