//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/relaykit/pnba"
)

// AutoMigrate runs database migrations for the registry tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&RecordModel{})
}

// RecordStore implements pnba.RecordStore using GORM.
type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Read(phoneNumber string) (pnba.RegistryRecord, error) {
	var model RecordModel
	err := s.db.First(&model, "phone_number = ?", phoneNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pnba.RegistryRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToRecord(), nil
}

func (s *RecordStore) Write(phoneNumber string, record pnba.RegistryRecord) error {
	model := &RecordModel{
		PhoneNumber: phoneNumber,
		Data:        JSONMap(record),
	}
	return s.db.Save(model).Error
}

// Update merges fields inside a transaction, unlike the file-system store
// which is read-then-write with no isolation.
func (s *RecordStore) Update(phoneNumber string, fields pnba.RegistryRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model RecordModel
		err := tx.First(&model, "phone_number = ?", phoneNumber).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model.PhoneNumber = phoneNumber
		if model.Data == nil {
			model.Data = JSONMap{}
		}
		for k, v := range fields {
			model.Data[k] = v
		}
		return tx.Save(&model).Error
	})
}

func (s *RecordStore) Clear(phoneNumber string) (bool, error) {
	res := s.db.Delete(&RecordModel{}, "phone_number = ?", phoneNumber)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
