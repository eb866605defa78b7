package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"

	"github.com/lib/pq"
)

type ContactRepository struct {
	DB *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{DB: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *ContactRepository) ListSets() ([]*model.SetSummary, error) {
	query := `
		SELECT s.name, COUNT(c.id), s.created_at, s.updated_at
		FROM contact_sets s
		LEFT JOIN contacts c ON c.set_id = s.id
		GROUP BY s.id
		ORDER BY s.name`

	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []*model.SetSummary{}
	for rows.Next() {
		var s model.SetSummary
		if err := rows.Scan(&s.Name, &s.Count, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func (r *ContactRepository) GetSetByName(name string) (*model.ContactSet, error) {
	var s model.ContactSet
	query := `
		SELECT id, name, created_at, updated_at
		FROM contact_sets
		WHERE name = $1`

	err := r.DB.QueryRow(query, name).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateOrGetSet returns the existing set or creates an empty one.
func (r *ContactRepository) CreateOrGetSet(name string) (*model.ContactSet, error) {
	var s model.ContactSet
	query := `
		INSERT INTO contact_sets (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at, updated_at`

	err := r.DB.QueryRow(query, name).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetContacts returns the set's contacts in stored (insertion) order.
func (r *ContactRepository) GetContacts(setID int64) ([]*model.Contact, error) {
	query := `
		SELECT id, phone, name
		FROM contacts
		WHERE set_id = $1
		ORDER BY id`

	rows, err := r.DB.Query(query, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Phone, &c.Name); err != nil {
			return nil, err
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) GetContactByID(setID, contactID int64) (*model.Contact, error) {
	var c model.Contact
	query := `
		SELECT id, phone, name
		FROM contacts
		WHERE set_id = $1 AND id = $2`

	err := r.DB.QueryRow(query, setID, contactID).Scan(&c.ID, &c.Phone, &c.Name)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AddContact inserts one contact. The phone must already be normalized;
// a duplicate within the set maps to apperr.ErrConflict.
func (r *ContactRepository) AddContact(setID int64, phone, name string) (*model.Contact, error) {
	var c model.Contact
	query := `
		INSERT INTO contacts (set_id, phone, name)
		VALUES ($1, $2, $3)
		RETURNING id, phone, name`

	err := r.DB.QueryRow(query, setID, phone, name).Scan(&c.ID, &c.Phone, &c.Name)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("phone %s already in set: %w", phone, apperr.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	if err := r.touchSet(setID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) UpdateContact(setID, contactID int64, phone, name string) (*model.Contact, error) {
	var c model.Contact
	query := `
		UPDATE contacts
		SET phone = $1, name = $2
		WHERE set_id = $3 AND id = $4
		RETURNING id, phone, name`

	err := r.DB.QueryRow(query, phone, name, setID, contactID).Scan(&c.ID, &c.Phone, &c.Name)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("phone %s already in set: %w", phone, apperr.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	if err := r.touchSet(setID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) DeleteContact(setID, contactID int64) error {
	res, err := r.DB.Exec(`DELETE FROM contacts WHERE set_id = $1 AND id = $2`, setID, contactID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return r.touchSet(setID)
}

func (r *ContactRepository) CountContacts(setID int64) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM contacts WHERE set_id = $1`, setID).Scan(&count)
	return count, err
}

func (r *ContactRepository) RenameSet(setID int64, newName string) error {
	query := `
		UPDATE contact_sets
		SET name = $1, updated_at = now()
		WHERE id = $2`

	_, err := r.DB.Exec(query, newName, setID)
	if isUniqueViolation(err) {
		return fmt.Errorf("set %s already exists: %w", newName, apperr.ErrConflict)
	}
	return err
}

func (r *ContactRepository) DeleteSet(setID int64) error {
	res, err := r.DB.Exec(`DELETE FROM contact_sets WHERE id = $1`, setID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *ContactRepository) touchSet(setID int64) error {
	_, err := r.DB.Exec(`UPDATE contact_sets SET updated_at = now() WHERE id = $1`, setID)
	return err
}
