package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/phone"
)

var (
	phoneHeaderRe = regexp.MustCompile(`(?i)phone|number|msisdn|mobile|tel|whatsapp`)
	nameHeaderRe  = regexp.MustCompile(`(?i)name|jina|customer|client`)
	cellSplitRe   = regexp.MustCompile(`[;,|\t]`)
)

type IngestResult struct {
	Added int `json:"added"`
	Count int `json:"count"`
}

// IngestService turns uploaded tabular files into contacts of a set.
// Column layout is sniffed, not declared: a phone column is found by
// header name or by scanning values for digit-dominant tokens, and rows
// whose phone does not normalize are dropped silently.
type IngestService struct {
	Store ContactStore
	Norm  phone.Normalizer
}

func NewIngestService(store ContactStore, norm phone.Normalizer) *IngestService {
	return &IngestService{Store: store, Norm: norm}
}

func (s *IngestService) Ingest(setName string, r io.Reader) (*IngestResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed upload: %w", apperr.ErrInvalid)
		}
		if isEmptyRow(record) {
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in upload: %w", apperr.ErrInvalid)
	}

	phoneIdx, nameIdx, hasHeader := sniffColumns(rows)
	if hasHeader {
		rows = rows[1:]
	}

	type candidate struct {
		phone string
		name  string
	}
	var valid []candidate
	for _, row := range rows {
		rawPhone, rawName := extractRow(row, phoneIdx, nameIdx)
		normalized := s.Norm.Normalize(rawPhone)
		if normalized == phone.Invalid {
			continue
		}
		valid = append(valid, candidate{phone: normalized, name: strings.TrimSpace(rawName)})
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid rows: %w", apperr.ErrInvalid)
	}

	set, err := s.Store.CreateOrGetSet(setName)
	if err != nil {
		return nil, err
	}

	existing, err := s.Store.GetContacts(set.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Phone] = true
	}

	added := 0
	for _, c := range valid {
		if seen[c.phone] {
			continue
		}
		seen[c.phone] = true
		if _, err := s.Store.AddContact(set.ID, c.phone, c.name); err != nil {
			return nil, err
		}
		added++
	}

	count, err := s.Store.CountContacts(set.ID)
	if err != nil {
		return nil, err
	}
	return &IngestResult{Added: added, Count: count}, nil
}

// sniffColumns picks the phone and name columns. Header names win; with
// no recognizable header, the phone column is the one whose values most
// often look like numbers, and the name falls back to per-row detection
// (nameIdx -1).
func sniffColumns(rows [][]string) (phoneIdx, nameIdx int, hasHeader bool) {
	phoneIdx, nameIdx = -1, -1

	header := rows[0]
	for i, cell := range header {
		trimmed := strings.TrimSpace(cell)
		if phoneIdx == -1 && phoneHeaderRe.MatchString(trimmed) && !looksLikePhone(trimmed) {
			phoneIdx = i
		}
		if nameIdx == -1 && nameHeaderRe.MatchString(trimmed) && !phoneHeaderRe.MatchString(trimmed) {
			nameIdx = i
		}
	}
	if phoneIdx != -1 {
		return phoneIdx, nameIdx, true
	}

	// No header: vote per column over a sample of rows.
	votes := map[int]int{}
	sample := rows
	if len(sample) > 50 {
		sample = sample[:50]
	}
	for _, row := range sample {
		for i, cell := range row {
			if looksLikePhone(cell) {
				votes[i]++
			}
		}
	}
	best, bestVotes := -1, 0
	for i, v := range votes {
		if v > bestVotes || (v == bestVotes && best != -1 && i < best) {
			best, bestVotes = i, v
		}
	}
	return best, -1, false
}

// extractRow pulls (phone, name) out of one data row.
func extractRow(row []string, phoneIdx, nameIdx int) (string, string) {
	// A row collapsed to one delimited string: trailing token is the
	// phone, the rest is the name.
	if len(row) == 1 && cellSplitRe.MatchString(row[0]) {
		parts := cellSplitRe.Split(row[0], -1)
		rawPhone := strings.TrimSpace(parts[len(parts)-1])
		rawName := strings.TrimSpace(strings.Join(parts[:len(parts)-1], " "))
		return rawPhone, rawName
	}

	rawPhone := ""
	usedIdx := -1
	if phoneIdx >= 0 && phoneIdx < len(row) && looksLikePhone(row[phoneIdx]) {
		rawPhone = row[phoneIdx]
		usedIdx = phoneIdx
	} else {
		for i, cell := range row {
			if looksLikePhone(cell) {
				rawPhone = cell
				usedIdx = i
				break
			}
		}
	}

	rawName := ""
	if nameIdx >= 0 && nameIdx < len(row) && nameIdx != usedIdx {
		rawName = row[nameIdx]
	} else {
		for i, cell := range row {
			if i != usedIdx && strings.TrimSpace(cell) != "" && !looksLikePhone(cell) {
				rawName = cell
				break
			}
		}
	}
	return rawPhone, rawName
}

// looksLikePhone reports whether a cell value is a digit-dominant token
// of plausible length.
func looksLikePhone(cell string) bool {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return false
	}
	digits := 0
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits*2 >= len(trimmed)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
