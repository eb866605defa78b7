package service

import (
	"fmt"
	"sync"
	"time"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"
)

// fakeStore is an in-memory ContactStore with the same error semantics
// as the Postgres repository.
type fakeStore struct {
	mu            sync.Mutex
	nextSetID     int64
	nextContactID int64
	sets          map[string]*model.ContactSet
	contacts      map[int64][]*model.Contact
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sets:     map[string]*model.ContactSet{},
		contacts: map[int64][]*model.Contact{},
	}
}

func (f *fakeStore) ListSets() ([]*model.SetSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.SetSummary{}
	for _, set := range f.sets {
		out = append(out, &model.SetSummary{
			Name:      set.Name,
			Count:     len(f.contacts[set.ID]),
			CreatedAt: set.CreatedAt,
			UpdatedAt: set.UpdatedAt,
		})
	}
	return out, nil
}

func (f *fakeStore) GetSetByName(name string) (*model.ContactSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[name]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return set, nil
}

func (f *fakeStore) CreateOrGetSet(name string) (*model.ContactSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.sets[name]; ok {
		return set, nil
	}
	f.nextSetID++
	set := &model.ContactSet{ID: f.nextSetID, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.sets[name] = set
	f.contacts[set.ID] = []*model.Contact{}
	return set, nil
}

func (f *fakeStore) GetContacts(setID int64) ([]*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Contact, len(f.contacts[setID]))
	copy(out, f.contacts[setID])
	return out, nil
}

func (f *fakeStore) GetContactByID(setID, contactID int64) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts[setID] {
		if c.ID == contactID {
			return c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeStore) AddContact(setID int64, phone, name string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts[setID] {
		if c.Phone == phone {
			return nil, fmt.Errorf("phone %s already in set: %w", phone, apperr.ErrConflict)
		}
	}
	f.nextContactID++
	contact := &model.Contact{ID: f.nextContactID, Phone: phone, Name: name}
	f.contacts[setID] = append(f.contacts[setID], contact)
	return contact, nil
}

func (f *fakeStore) UpdateContact(setID, contactID int64, phone, name string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts[setID] {
		if c.ID != contactID && c.Phone == phone {
			return nil, fmt.Errorf("phone %s already in set: %w", phone, apperr.ErrConflict)
		}
	}
	for _, c := range f.contacts[setID] {
		if c.ID == contactID {
			c.Phone = phone
			c.Name = name
			return c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeStore) DeleteContact(setID, contactID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.contacts[setID]
	for i, c := range list {
		if c.ID == contactID {
			f.contacts[setID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeStore) CountContacts(setID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.contacts[setID]), nil
}

func (f *fakeStore) RenameSet(setID int64, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.sets[newName]; ok && existing.ID != setID {
		return fmt.Errorf("set %s already exists: %w", newName, apperr.ErrConflict)
	}
	for name, set := range f.sets {
		if set.ID == setID {
			delete(f.sets, name)
			set.Name = newName
			f.sets[newName] = set
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeStore) DeleteSet(setID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, set := range f.sets {
		if set.ID == setID {
			delete(f.sets, name)
			delete(f.contacts, setID)
			return nil
		}
	}
	return apperr.ErrNotFound
}
