// Package events emits domain events for downstream consumers. Delivery is
// fire-and-forget: issuance never fails because an event could not be sent.
package events

import (
	"context"
	"time"
)

// CertificateIssued is published after a certificate is durably stored.
type CertificateIssued struct {
	CertificateID         string    `json:"certificate_id"`
	CertificateNumber     string    `json:"certificate_number"`
	PetID                 string    `json:"pet_id"`
	OwnerID               string    `json:"owner_id"`
	IssuingPractitionerID string    `json:"issuing_practitioner_id"`
	IssuingOrganizationID string    `json:"issuing_organization_id"`
	IssuedAt              time.Time `json:"issued_at"`
}

// Publisher is the outbound event port.
type Publisher interface {
	PublishCertificateIssued(ctx context.Context, event CertificateIssued) error
}

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCertificateIssued(context.Context, CertificateIssued) error {
	return nil
}
