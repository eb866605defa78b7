package service

import (
	"strings"
	"testing"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestService() (*IngestService, *ContactService) {
	store := newFakeStore()
	norm := phone.New("255", 9)
	return NewIngestService(store, norm), NewContactService(store, norm)
}

func TestIngestWithHeaders(t *testing.T) {
	ingest, contacts := newIngestService()

	csvData := "name,phone\nJohn,0712345678\nJane,0798765432\n"
	result, err := ingest.Ingest("friends", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 2, result.Count)

	stored, err := contacts.GetSet("friends")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "255712345678", stored[0].Phone)
	assert.Equal(t, "John", stored[0].Name)
}

func TestIngestHeaderVariants(t *testing.T) {
	tests := []struct {
		name    string
		csvData string
	}{
		{name: "mobile header", csvData: "fullname,mobile\nJohn,0712345678\n"},
		{name: "msisdn header", csvData: "msisdn,customer\n0712345678,John\n"},
		{name: "whatsapp header", csvData: "jina,whatsapp number\nJohn,0712345678\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingest, contacts := newIngestService()
			result, err := ingest.Ingest("s", strings.NewReader(tt.csvData))
			require.NoError(t, err)
			assert.Equal(t, 1, result.Added)

			stored, err := contacts.GetSet("s")
			require.NoError(t, err)
			require.Len(t, stored, 1)
			assert.Equal(t, "255712345678", stored[0].Phone)
			assert.Equal(t, "John", stored[0].Name)
		})
	}
}

func TestIngestNoHeaderSniffsByValue(t *testing.T) {
	ingest, contacts := newIngestService()

	csvData := "John,0712345678\nJane,0798765432\n"
	result, err := ingest.Ingest("friends", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	stored, err := contacts.GetSet("friends")
	require.NoError(t, err)
	assert.Equal(t, "John", stored[0].Name)
	assert.Equal(t, "255712345678", stored[0].Phone)
}

func TestIngestDeduplicates(t *testing.T) {
	ingest, contacts := newIngestService()

	// A named row plus a bare duplicate collapse to one stored contact.
	csvData := "John,0712345678\n0712345678\n"
	result, err := ingest.Ingest("friends", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Count)

	stored, err := contacts.GetSet("friends")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "255712345678", stored[0].Phone)
}

func TestIngestDeduplicatesAgainstExistingSet(t *testing.T) {
	ingest, contacts := newIngestService()

	_, err := contacts.AddContact("friends", "0712345678", "John")
	require.NoError(t, err)

	result, err := ingest.Ingest("friends", strings.NewReader("Jane,0798765432\nJohn,0712345678\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 2, result.Count)
}

func TestIngestDropsInvalidRowsSilently(t *testing.T) {
	ingest, _ := newIngestService()

	csvData := "name,phone\nJohn,0712345678\nBroken,---\n"
	result, err := ingest.Ingest("friends", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
}

func TestIngestNoValidRows(t *testing.T) {
	ingest, _ := newIngestService()

	_, err := ingest.Ingest("friends", strings.NewReader("name,phone\nJohn,---\n"))
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestIngestEmptyFile(t *testing.T) {
	ingest, _ := newIngestService()

	_, err := ingest.Ingest("friends", strings.NewReader(""))
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestIngestSingleDelimitedCell(t *testing.T) {
	ingest, contacts := newIngestService()

	// Rows collapsed into one cell: trailing token is the phone.
	csvData := "John Doe;0712345678\n"
	result, err := ingest.Ingest("friends", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	stored, err := contacts.GetSet("friends")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "255712345678", stored[0].Phone)
	assert.Equal(t, "John Doe", stored[0].Name)
}

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, looksLikePhone("0712345678"))
	assert.True(t, looksLikePhone("+255 712 345 678"))
	assert.False(t, looksLikePhone("John Doe"))
	assert.False(t, looksLikePhone(""))
	assert.False(t, looksLikePhone("42"))
}
