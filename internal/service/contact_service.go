package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"
	"wablast-backend/internal/phone"
)

// ContactStore is the abstract contact persistence contract. The Postgres
// repository satisfies it in production; tests substitute an in-memory fake.
type ContactStore interface {
	ListSets() ([]*model.SetSummary, error)
	GetSetByName(name string) (*model.ContactSet, error)
	CreateOrGetSet(name string) (*model.ContactSet, error)
	GetContacts(setID int64) ([]*model.Contact, error)
	GetContactByID(setID, contactID int64) (*model.Contact, error)
	AddContact(setID int64, phone, name string) (*model.Contact, error)
	UpdateContact(setID, contactID int64, phone, name string) (*model.Contact, error)
	DeleteContact(setID, contactID int64) error
	CountContacts(setID int64) (int, error)
	RenameSet(setID int64, newName string) error
	DeleteSet(setID int64) error
}

type ContactService struct {
	Store ContactStore
	Norm  phone.Normalizer
}

func NewContactService(store ContactStore, norm phone.Normalizer) *ContactService {
	return &ContactService{Store: store, Norm: norm}
}

func (s *ContactService) ListSets() ([]*model.SetSummary, error) {
	return s.Store.ListSets()
}

func (s *ContactService) GetSet(name string) ([]*model.Contact, error) {
	set, err := s.Store.GetSetByName(name)
	if err != nil {
		return nil, err
	}
	return s.Store.GetContacts(set.ID)
}

func (s *ContactService) AddContact(setName, rawPhone, name string) (*model.Contact, error) {
	normalized := s.Norm.Normalize(rawPhone)
	if normalized == phone.Invalid {
		return nil, fmt.Errorf("phone %q: %w", rawPhone, apperr.ErrInvalid)
	}

	set, err := s.Store.CreateOrGetSet(setName)
	if err != nil {
		return nil, err
	}
	return s.Store.AddContact(set.ID, normalized, strings.TrimSpace(name))
}

func (s *ContactService) UpdateContact(setName string, contactID int64, patch model.ContactPatch) (*model.Contact, error) {
	set, err := s.Store.GetSetByName(setName)
	if err != nil {
		return nil, err
	}

	existing, err := s.Store.GetContactByID(set.ID, contactID)
	if err != nil {
		return nil, err
	}

	newPhone := existing.Phone
	if patch.Phone != nil {
		newPhone = s.Norm.Normalize(*patch.Phone)
		if newPhone == phone.Invalid {
			return nil, fmt.Errorf("phone %q: %w", *patch.Phone, apperr.ErrInvalid)
		}
	}
	newName := existing.Name
	if patch.Name != nil {
		newName = strings.TrimSpace(*patch.Name)
	}

	return s.Store.UpdateContact(set.ID, contactID, newPhone, newName)
}

// DeleteContact removes a contact and returns the remaining count.
func (s *ContactService) DeleteContact(setName string, contactID int64) (int, error) {
	set, err := s.Store.GetSetByName(setName)
	if err != nil {
		return 0, err
	}
	if err := s.Store.DeleteContact(set.ID, contactID); err != nil {
		return 0, err
	}
	return s.Store.CountContacts(set.ID)
}

func (s *ContactService) RenameSet(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("empty set name: %w", apperr.ErrInvalid)
	}

	set, err := s.Store.GetSetByName(oldName)
	if err != nil {
		return err
	}
	if _, err := s.Store.GetSetByName(newName); err == nil {
		return fmt.Errorf("set %s already exists: %w", newName, apperr.ErrConflict)
	}
	return s.Store.RenameSet(set.ID, newName)
}

func (s *ContactService) DeleteSet(name string) error {
	set, err := s.Store.GetSetByName(name)
	if err != nil {
		return err
	}
	return s.Store.DeleteSet(set.ID)
}

// ExportCSV streams the set as CSV with a name,phone header row. Fields
// are quoted by the writer as needed.
func (s *ContactService) ExportCSV(w io.Writer, setName string) error {
	contacts, err := s.GetSet(setName)
	if err != nil {
		return err
	}
	return s.WriteCSV(w, contacts)
}

// WriteCSV writes an already-fetched contact list as CSV. Callers that
// resolved the set themselves use this so the set is read exactly once.
func (s *ContactService) WriteCSV(w io.Writer, contacts []*model.Contact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "phone"}); err != nil {
		return err
	}
	for _, c := range contacts {
		if err := cw.Write([]string{c.Name, c.Phone}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
