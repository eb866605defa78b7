package model

import "time"

// Progress holds the live counters of the current broadcast run.
type Progress struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// BroadcastRun is one append-only history record. It is never mutated
// after insertion.
type BroadcastRun struct {
	ID      int64     `json:"id"`
	SetName string    `json:"set_name"`
	Message string    `json:"message"`
	Total   int       `json:"total"`
	Sent    int       `json:"sent"`
	Failed  int       `json:"failed"`
	RanAt   time.Time `json:"ran_at"`
}
