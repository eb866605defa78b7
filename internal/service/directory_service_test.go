package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"
	"wablast-backend/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenStore struct {
	mu  sync.Mutex
	tok *model.DirectoryToken
}

func (f *fakeTokenStore) Save(tok *model.DirectoryToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tok = tok
	return nil
}

func (f *fakeTokenStore) Get() (*model.DirectoryToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tok == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return f.tok, nil
}

func (f *fakeTokenStore) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tok = nil
	return nil
}

func newDirectoryFixture(tokens *fakeTokenStore) (*DirectoryService, *fakeStore) {
	store := newFakeStore()
	svc := NewDirectoryService("client-id", "client-secret", "http://localhost/callback",
		tokens, store, phone.New("255", 9))
	return svc, store
}

func liveToken() *model.DirectoryToken {
	return &model.DirectoryToken{
		AccessToken: "live-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func TestListContactsUnauthenticated(t *testing.T) {
	svc, _ := newDirectoryFixture(&fakeTokenStore{})

	_, err := svc.ListContacts(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestListContactsNormalizesAndExcludesInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer live-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"connections": []map[string]interface{}{
				{
					"names":        []map[string]string{{"displayName": "John"}},
					"phoneNumbers": []map[string]string{{"value": "+255 712 345 678"}},
				},
				{
					"names":        []map[string]string{{"displayName": "No Number"}},
					"phoneNumbers": []map[string]string{{"value": "---"}},
				},
				{
					"names":        []map[string]string{{"displayName": "Canonical"}},
					"phoneNumbers": []map[string]string{{"value": "0798765432", "canonicalForm": "+255798765432"}},
				},
			},
		})
	}))
	defer server.Close()

	svc, _ := newDirectoryFixture(&fakeTokenStore{tok: liveToken()})
	svc.PeopleBaseURL = server.URL

	contacts, err := svc.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "John", contacts[0].Name)
	assert.Equal(t, "255712345678", contacts[0].Phone)
	assert.Equal(t, "255798765432", contacts[1].Phone)
}

func TestListContactsPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"connections": []map[string]interface{}{
					{"phoneNumbers": []map[string]string{{"value": "0712345671"}}},
				},
				"nextPageToken": "page2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"connections": []map[string]interface{}{
				{"phoneNumbers": []map[string]string{{"value": "0712345672"}}},
			},
		})
	}))
	defer server.Close()

	svc, _ := newDirectoryFixture(&fakeTokenStore{tok: liveToken()})
	svc.PeopleBaseURL = server.URL

	contacts, err := svc.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
}

func TestListContactsRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc, _ := newDirectoryFixture(&fakeTokenStore{tok: liveToken()})
	svc.PeopleBaseURL = server.URL

	_, err := svc.ListContacts(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestSaveSelectedDeduplicates(t *testing.T) {
	svc, store := newDirectoryFixture(&fakeTokenStore{tok: liveToken()})

	set, err := store.CreateOrGetSet("imported")
	require.NoError(t, err)
	_, err = store.AddContact(set.ID, "255712345678", "Existing")
	require.NoError(t, err)

	result, err := svc.SaveSelected("imported", []*model.DirectoryContact{
		{Name: "John", Phone: "0712345678"},  // duplicate of Existing
		{Name: "Jane", Phone: "0798765432"},
		{Name: "Bad", Phone: "---"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 2, result.Count)
}

func TestSaveSelectedEmpty(t *testing.T) {
	svc, _ := newDirectoryFixture(&fakeTokenStore{})

	_, err := svc.SaveSelected("imported", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDisconnectDropsToken(t *testing.T) {
	tokens := &fakeTokenStore{tok: liveToken()}
	svc, _ := newDirectoryFixture(tokens)

	require.NoError(t, svc.Disconnect())

	_, err := svc.ListContacts(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthURLCarriesState(t *testing.T) {
	svc, _ := newDirectoryFixture(&fakeTokenStore{})
	url := svc.AuthURL("xyzzy")
	assert.Contains(t, url, "state=xyzzy")
	assert.Contains(t, url, "client-id")
}
