package store

import (
	"context"

	"petcert/internal/certificate/models"
	"petcert/internal/registry"
	"petcert/pkg/domain"
)

// MemoryTxRunner gives the in-memory profile the same all-or-nothing
// semantics as the Postgres transaction: writes issued inside fn are staged
// and only applied when fn returns nil.
type MemoryTxRunner struct {
	certs   *MemoryStore
	records registry.Records
}

func NewMemoryTxRunner(certs *MemoryStore, records registry.Records) *MemoryTxRunner {
	return &MemoryTxRunner{certs: certs, records: records}
}

func (r *MemoryTxRunner) RunInTx(ctx context.Context, fn func(certs Store, records registry.RecordMarker) error) error {
	stage := &memoryStage{base: r.certs}
	if err := fn(stage, stage); err != nil {
		return err
	}

	for _, certificate := range stage.created {
		if err := r.certs.Create(ctx, certificate); err != nil {
			// Roll back anything applied so far; nothing else has
			// touched the record marks yet.
			for _, applied := range stage.created {
				if applied == certificate {
					break
				}
				r.certs.remove(applied.ID)
			}
			return err
		}
	}
	for _, recordID := range stage.marked {
		if err := r.records.MarkImmutable(ctx, recordID); err != nil {
			for _, applied := range stage.created {
				r.certs.remove(applied.ID)
			}
			return err
		}
	}
	return nil
}

// memoryStage buffers writes and answers reads from the buffer first, then
// the base store.
type memoryStage struct {
	base    *MemoryStore
	created []*models.Certificate
	marked  []domain.RecordID
}

func (s *memoryStage) Create(ctx context.Context, certificate *models.Certificate) error {
	if _, err := s.base.FindByNumber(ctx, certificate.Number); err == nil {
		return ErrDuplicateNumber
	}
	if _, err := s.base.FindByRecord(ctx, certificate.RecordID); err == nil {
		return ErrDuplicateRecord
	}
	for _, staged := range s.created {
		if staged.Number == certificate.Number {
			return ErrDuplicateNumber
		}
		if staged.RecordID == certificate.RecordID {
			return ErrDuplicateRecord
		}
	}
	s.created = append(s.created, certificate)
	return nil
}

func (s *memoryStage) FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	for _, staged := range s.created {
		if staged.ID == id {
			return staged, nil
		}
	}
	return s.base.FindByID(ctx, id)
}

func (s *memoryStage) FindByRecord(ctx context.Context, recordID domain.RecordID) (*models.Certificate, error) {
	for _, staged := range s.created {
		if staged.RecordID == recordID {
			return staged, nil
		}
	}
	return s.base.FindByRecord(ctx, recordID)
}

func (s *memoryStage) FindByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	for _, staged := range s.created {
		if staged.Number == number {
			return staged, nil
		}
	}
	return s.base.FindByNumber(ctx, number)
}

func (s *memoryStage) ListByPet(ctx context.Context, petID domain.PetID) ([]*models.Certificate, error) {
	return s.base.ListByPet(ctx, petID)
}

func (s *memoryStage) MarkImmutable(_ context.Context, id domain.RecordID) error {
	s.marked = append(s.marked, id)
	return nil
}
