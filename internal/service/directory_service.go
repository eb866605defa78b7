package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"
	"wablast-backend/internal/phone"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultPeopleBaseURL = "https://people.googleapis.com"

// TokenStore persists the single delegated directory credential.
type TokenStore interface {
	Save(tok *model.DirectoryToken) error
	Get() (*model.DirectoryToken, error)
	Delete() error
}

// DirectoryService imports contacts from the operator's Google address
// book via the standard authorization-code flow. One credential is live
// at a time; refresh replaces it in the store before each read.
type DirectoryService struct {
	OAuth    *oauth2.Config
	Tokens   TokenStore
	Contacts ContactStore
	Norm     phone.Normalizer

	// PeopleBaseURL is overridable in tests.
	PeopleBaseURL string
	HTTPClient    *http.Client
}

func NewDirectoryService(clientID, clientSecret, redirectURL string, tokens TokenStore, contacts ContactStore, norm phone.Normalizer) *DirectoryService {
	return &DirectoryService{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/contacts.readonly"},
			Endpoint:     google.Endpoint,
		},
		Tokens:        tokens,
		Contacts:      contacts,
		Norm:          norm,
		PeopleBaseURL: defaultPeopleBaseURL,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *DirectoryService) AuthURL(state string) string {
	return s.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code and stores the token,
// replacing any previous credential.
func (s *DirectoryService) HandleCallback(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("missing authorization code: %w", apperr.ErrInvalid)
	}

	tok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	return s.Tokens.Save(&model.DirectoryToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        scopeOf(tok),
		Expiry:       tok.Expiry,
	})
}

func scopeOf(tok *oauth2.Token) string {
	if s, ok := tok.Extra("scope").(string); ok {
		return s
	}
	return ""
}

// accessToken returns a live access token, refreshing and re-persisting
// the stored credential when it reports itself as expiring.
func (s *DirectoryService) accessToken(ctx context.Context) (string, error) {
	stored, err := s.Tokens.Get()
	if err != nil {
		return "", err
	}

	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	if tok.Valid() {
		return tok.AccessToken, nil
	}
	if stored.RefreshToken == "" {
		return "", fmt.Errorf("token expired and not refreshable: %w", apperr.ErrUnauthenticated)
	}

	fresh, err := s.OAuth.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", apperr.ErrUnauthenticated)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = stored.RefreshToken
	}

	if err := s.Tokens.Save(&model.DirectoryToken{
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		TokenType:    fresh.TokenType,
		Scope:        stored.Scope,
		Expiry:       fresh.Expiry,
	}); err != nil {
		return "", err
	}
	log.Info().Msg("directory token refreshed")
	return fresh.AccessToken, nil
}

// Disconnect drops the stored credential. Directory reads require a
// fresh authorization afterwards.
func (s *DirectoryService) Disconnect() error {
	return s.Tokens.Delete()
}

type peopleResponse struct {
	Connections []struct {
		Names []struct {
			DisplayName string `json:"displayName"`
		} `json:"names"`
		PhoneNumbers []struct {
			Value         string `json:"value"`
			CanonicalForm string `json:"canonicalForm"`
		} `json:"phoneNumbers"`
	} `json:"connections"`
	NextPageToken string `json:"nextPageToken"`
}

// ListContacts reads the whole directory, normalized. Entries whose
// number cannot be normalized are excluded.
func (s *DirectoryService) ListContacts(ctx context.Context) ([]*model.DirectoryContact, error) {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	contacts := []*model.DirectoryContact{}
	seen := map[string]bool{}
	pageToken := ""
	for {
		page, err := s.fetchPage(ctx, accessToken, pageToken)
		if err != nil {
			return nil, err
		}

		for _, person := range page.Connections {
			name := ""
			if len(person.Names) > 0 {
				name = person.Names[0].DisplayName
			}
			for _, pn := range person.PhoneNumbers {
				raw := pn.CanonicalForm
				if raw == "" {
					raw = pn.Value
				}
				normalized := s.Norm.Normalize(raw)
				if normalized == phone.Invalid || seen[normalized] {
					continue
				}
				seen[normalized] = true
				contacts = append(contacts, &model.DirectoryContact{Name: name, Phone: normalized})
			}
		}

		if page.NextPageToken == "" {
			return contacts, nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *DirectoryService) fetchPage(ctx context.Context, accessToken, pageToken string) (*peopleResponse, error) {
	q := url.Values{}
	q.Set("personFields", "names,phoneNumbers")
	q.Set("pageSize", "200")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.PeopleBaseURL+"/v1/people/me/connections?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("directory rejected token: %w", apperr.ErrUnauthenticated)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var page peopleResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("directory response decode: %w", err)
	}
	return &page, nil
}

type DirectorySaveResult struct {
	Added    int              `json:"added"`
	Count    int              `json:"count"`
	Contacts []*model.Contact `json:"contacts"`
}

// SaveSelected stores the chosen directory numbers into a set, skipping
// duplicates against both the selection and the stored set.
func (s *DirectoryService) SaveSelected(setName string, selection []*model.DirectoryContact) (*DirectorySaveResult, error) {
	if len(selection) == 0 {
		return nil, fmt.Errorf("no numbers selected: %w", apperr.ErrInvalid)
	}

	set, err := s.Contacts.CreateOrGetSet(setName)
	if err != nil {
		return nil, err
	}
	existing, err := s.Contacts.GetContacts(set.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Phone] = true
	}

	added := 0
	for _, sel := range selection {
		normalized := s.Norm.Normalize(sel.Phone)
		if normalized == phone.Invalid || seen[normalized] {
			continue
		}
		seen[normalized] = true
		if _, err := s.Contacts.AddContact(set.ID, normalized, sel.Name); err != nil {
			return nil, err
		}
		added++
	}

	contacts, err := s.Contacts.GetContacts(set.ID)
	if err != nil {
		return nil, err
	}
	return &DirectorySaveResult{Added: added, Count: len(contacts), Contacts: contacts}, nil
}
