// Package store persists certificates. Two uniqueness constraints are the
// authoritative race-breakers: one on the certificate number and one on the
// originating record id.
package store

import (
	"context"
	"fmt"

	"petcert/internal/certificate/models"
	"petcert/pkg/domain"
	"petcert/pkg/platform/sentinel"
)

// Constraint-specific conflict errors. Both wrap sentinel.ErrConflict so
// generic conflict handling still works with errors.Is.
var (
	ErrDuplicateNumber = fmt.Errorf("certificate number already in use: %w", sentinel.ErrConflict)
	ErrDuplicateRecord = fmt.Errorf("record already has a certificate: %w", sentinel.ErrConflict)
)

// Store is the certificate persistence port.
type Store interface {
	// Create inserts the certificate. Returns ErrDuplicateNumber or
	// ErrDuplicateRecord when a uniqueness constraint rejects the write.
	Create(ctx context.Context, certificate *models.Certificate) error
	FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	FindByRecord(ctx context.Context, recordID domain.RecordID) (*models.Certificate, error)
	FindByNumber(ctx context.Context, number string) (*models.Certificate, error)
	ListByPet(ctx context.Context, petID domain.PetID) ([]*models.Certificate, error)
}
