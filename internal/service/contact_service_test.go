package service

import (
	"bytes"
	"strings"
	"testing"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/model"
	"wablast-backend/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContactService() (*ContactService, *fakeStore) {
	store := newFakeStore()
	return NewContactService(store, phone.New("255", 9)), store
}

func TestAddContactNormalizes(t *testing.T) {
	svc, _ := newContactService()

	contact, err := svc.AddContact("friends", "0712345678", "John")
	require.NoError(t, err)
	assert.Equal(t, "255712345678", contact.Phone)
	assert.Equal(t, "John", contact.Name)
}

func TestAddContactInvalidPhone(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.AddContact("friends", "not-a-number", "John")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestAddDuplicateLeavesSetUnchanged(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.AddContact("friends", "0712345678", "John")
	require.NoError(t, err)

	// Same number in a different written form is still a duplicate.
	_, err = svc.AddContact("friends", "+255712345678", "Johnny")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	contacts, err := svc.GetSet("friends")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "John", contacts[0].Name)
}

func TestUpdateContactToDuplicateConflicts(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.AddContact("friends", "0712345678", "John")
	require.NoError(t, err)
	second, err := svc.AddContact("friends", "0798765432", "Jane")
	require.NoError(t, err)

	dup := "0712345678"
	_, err = svc.UpdateContact("friends", second.ID, model.ContactPatch{Phone: &dup})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestDeleteContactReturnsRemainingCount(t *testing.T) {
	svc, _ := newContactService()

	first, err := svc.AddContact("friends", "0712345678", "John")
	require.NoError(t, err)
	_, err = svc.AddContact("friends", "0798765432", "Jane")
	require.NoError(t, err)

	count, err := svc.DeleteContact("friends", first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRenameSetConflictLeavesBothUnchanged(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.AddContact("alpha", "0712345678", "A")
	require.NoError(t, err)
	_, err = svc.AddContact("beta", "0798765432", "B")
	require.NoError(t, err)

	err = svc.RenameSet("alpha", "beta")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	alpha, err := svc.GetSet("alpha")
	require.NoError(t, err)
	assert.Len(t, alpha, 1)
	beta, err := svc.GetSet("beta")
	require.NoError(t, err)
	assert.Len(t, beta, 1)
}

func TestRenameSetMissing(t *testing.T) {
	svc, _ := newContactService()
	err := svc.RenameSet("ghost", "anything")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetSetMissing(t *testing.T) {
	svc, _ := newContactService()
	_, err := svc.GetSet("ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExportCSV(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.AddContact("friends", "0712345678", `John "JJ" Doe`)
	require.NoError(t, err)
	_, err = svc.AddContact("friends", "0798765432", "Jane, Jr.")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(&buf, "friends"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,phone", lines[0])
	assert.Contains(t, buf.String(), `"Jane, Jr.",255798765432`)
}

// A fetched contact snapshot streams even if the set is deleted between
// the fetch and the write.
func TestWriteCSVUsesFetchedSnapshot(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.AddContact("friends", "0712345678", "John")
	require.NoError(t, err)

	contacts, err := svc.GetSet("friends")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSet("friends"))

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, contacts))
	assert.Contains(t, buf.String(), "John,255712345678")
}

// Importing an exported CSV into a fresh set reproduces the phone set.
func TestExportImportRoundTrip(t *testing.T) {
	store := newFakeStore()
	norm := phone.New("255", 9)
	contacts := NewContactService(store, norm)
	ingest := NewIngestService(store, norm)

	_, err := contacts.AddContact("original", "0712345678", "John")
	require.NoError(t, err)
	_, err = contacts.AddContact("original", "0798765432", "Jane")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, contacts.ExportCSV(&buf, "original"))

	result, err := ingest.Ingest("copy", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	orig, err := contacts.GetSet("original")
	require.NoError(t, err)
	copied, err := contacts.GetSet("copy")
	require.NoError(t, err)

	phonesOf := func(list []*model.Contact) []string {
		out := make([]string, len(list))
		for i, c := range list {
			out[i] = c.Phone
		}
		return out
	}
	assert.ElementsMatch(t, phonesOf(orig), phonesOf(copied))
}
