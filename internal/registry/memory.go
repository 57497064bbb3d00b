package registry

import (
	"context"
	"sort"
	"sync"

	"petcert/pkg/domain"
	"petcert/pkg/platform/sentinel"
)

// MemoryDirectory is an in-memory Directory used by tests and the
// no-database development profile.
type MemoryDirectory struct {
	mu            sync.RWMutex
	pets          map[domain.PetID]Pet
	records       map[domain.RecordID]MedicalRecord
	practitioners map[domain.PractitionerID]Practitioner
	organizations map[domain.OrganizationID]Organization
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		pets:          make(map[domain.PetID]Pet),
		records:       make(map[domain.RecordID]MedicalRecord),
		practitioners: make(map[domain.PractitionerID]Practitioner),
		organizations: make(map[domain.OrganizationID]Organization),
	}
}

func (d *MemoryDirectory) PutPet(pet Pet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pets[pet.ID] = pet
}

func (d *MemoryDirectory) PutRecord(record MedicalRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[record.ID] = record
}

func (d *MemoryDirectory) PutPractitioner(practitioner Practitioner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.practitioners[practitioner.ID] = practitioner
}

func (d *MemoryDirectory) PutOrganization(organization Organization) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.organizations[organization.ID] = organization
}

func (d *MemoryDirectory) FindPet(_ context.Context, id domain.PetID) (*Pet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pet, ok := d.pets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &pet, nil
}

func (d *MemoryDirectory) FindRecord(_ context.Context, id domain.RecordID) (*MedicalRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (d *MemoryDirectory) ListSignedByPet(_ context.Context, petID domain.PetID) ([]*MedicalRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var records []*MedicalRecord
	for _, record := range d.records {
		if record.PetID == petID && record.Signed {
			r := record
			records = append(records, &r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// MarkImmutable flips the one-way immutable flag. Already-immutable records
// are a no-op, not an error.
func (d *MemoryDirectory) MarkImmutable(_ context.Context, id domain.RecordID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Immutable = true
	d.records[id] = record
	return nil
}

func (d *MemoryDirectory) FindPractitioner(_ context.Context, id domain.PractitionerID) (*Practitioner, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	practitioner, ok := d.practitioners[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &practitioner, nil
}

func (d *MemoryDirectory) FindPractitionerByUser(_ context.Context, userID domain.UserID) (*Practitioner, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, practitioner := range d.practitioners {
		if practitioner.UserID == userID {
			p := practitioner
			return &p, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (d *MemoryDirectory) FindOrganization(_ context.Context, id domain.OrganizationID) (*Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	organization, ok := d.organizations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &organization, nil
}
