package model

import "time"

// DirectoryToken is the single delegated credential for the external
// contacts directory. At most one row exists; re-authorization replaces it.
type DirectoryToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"-"`
}

// DirectoryContact is one normalized entry read from the external directory.
type DirectoryContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
