package store

import (
	"context"
	"sort"
	"sync"

	"petcert/internal/certificate/models"
	"petcert/pkg/domain"
	"petcert/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store for tests and the no-database profile.
// It enforces the same two uniqueness constraints as the Postgres schema.
type MemoryStore struct {
	mu           sync.RWMutex
	certificates map[domain.CertificateID]models.Certificate
	byRecord     map[domain.RecordID]domain.CertificateID
	byNumber     map[string]domain.CertificateID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		certificates: make(map[domain.CertificateID]models.Certificate),
		byRecord:     make(map[domain.RecordID]domain.CertificateID),
		byNumber:     make(map[string]domain.CertificateID),
	}
}

func (s *MemoryStore) Create(_ context.Context, certificate *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNumber[certificate.Number]; exists {
		return ErrDuplicateNumber
	}
	if _, exists := s.byRecord[certificate.RecordID]; exists {
		return ErrDuplicateRecord
	}
	s.certificates[certificate.ID] = *certificate
	s.byRecord[certificate.RecordID] = certificate.ID
	s.byNumber[certificate.Number] = certificate.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certificate, ok := s.certificates[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &certificate, nil
}

func (s *MemoryStore) FindByRecord(_ context.Context, recordID domain.RecordID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRecord[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	certificate := s.certificates[id]
	return &certificate, nil
}

func (s *MemoryStore) FindByNumber(_ context.Context, number string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	certificate := s.certificates[id]
	return &certificate, nil
}

func (s *MemoryStore) ListByPet(_ context.Context, petID domain.PetID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var certificates []*models.Certificate
	for _, certificate := range s.certificates {
		if certificate.PetID == petID {
			c := certificate
			certificates = append(certificates, &c)
		}
	}
	sort.Slice(certificates, func(i, j int) bool {
		return certificates[i].CreatedAt.Before(certificates[j].CreatedAt)
	})
	return certificates, nil
}

// remove supports the memory transaction runner's rollback.
func (s *MemoryStore) remove(id domain.CertificateID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	certificate, ok := s.certificates[id]
	if !ok {
		return
	}
	delete(s.certificates, id)
	delete(s.byRecord, certificate.RecordID)
	delete(s.byNumber, certificate.Number)
}
