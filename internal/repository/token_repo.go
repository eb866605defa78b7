package repository

import (
	"database/sql"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"
)

type TokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Save upserts the single directory credential row. A refreshed or
// re-authorized token fully replaces the previous one.
func (r *TokenRepository) Save(tok *model.DirectoryToken) error {
	query := `
		INSERT INTO directory_token (id, access_token, refresh_token, token_type, scope, expiry, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expiry = EXCLUDED.expiry,
			updated_at = now()`

	_, err := r.DB.Exec(query, tok.AccessToken, tok.RefreshToken, tok.TokenType, tok.Scope, tok.Expiry)
	return err
}

func (r *TokenRepository) Get() (*model.DirectoryToken, error) {
	var tok model.DirectoryToken
	var expiry sql.NullTime

	query := `
		SELECT access_token, refresh_token, token_type, scope, expiry, updated_at
		FROM directory_token
		WHERE id = 1`

	err := r.DB.QueryRow(query).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &tok.Scope, &expiry, &tok.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	return &tok, nil
}

func (r *TokenRepository) Delete() error {
	_, err := r.DB.Exec(`DELETE FROM directory_token WHERE id = 1`)
	return err
}
