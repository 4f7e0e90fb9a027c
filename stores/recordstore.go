package stores

import "github.com/relaykit/pnba"

// FSRecordStore implements pnba.RecordStore over per-phone-number session
// registries. It is the default bookkeeping backend.
type FSRecordStore struct {
	BasePath string
}

func NewFSRecordStore(basePath string) *FSRecordStore {
	return &FSRecordStore{BasePath: basePath}
}

func (s *FSRecordStore) registry(phoneNumber string) (*SessionRegistry, error) {
	return NewSessionRegistry(phoneNumber, s.BasePath)
}

func (s *FSRecordStore) Read(phoneNumber string) (pnba.RegistryRecord, error) {
	r, err := s.registry(phoneNumber)
	if err != nil {
		return nil, err
	}
	return r.Read()
}

func (s *FSRecordStore) Write(phoneNumber string, record pnba.RegistryRecord) error {
	r, err := s.registry(phoneNumber)
	if err != nil {
		return err
	}
	return r.Write(record)
}

func (s *FSRecordStore) Update(phoneNumber string, fields pnba.RegistryRecord) error {
	r, err := s.registry(phoneNumber)
	if err != nil {
		return err
	}
	return r.Update(fields)
}

func (s *FSRecordStore) Clear(phoneNumber string) (bool, error) {
	r, err := s.registry(phoneNumber)
	if err != nil {
		return false, err
	}
	return r.Clear()
}
