package model

import "time"

type Contact struct {
	ID    int64  `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

type ContactSet struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetSummary is the list-view projection of a contact set.
type SetSummary struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContactPatch struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}
