package repository

import (
	"database/sql"

	"wablast-backend/internal/model"
)

type HistoryRepository struct {
	DB *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

// Append inserts one run record. Records are immutable once written.
func (r *HistoryRepository) Append(run *model.BroadcastRun) error {
	query := `
		INSERT INTO broadcast_history (set_name, message, total, sent, failed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ran_at`

	return r.DB.QueryRow(query, run.SetName, run.Message, run.Total, run.Sent, run.Failed).
		Scan(&run.ID, &run.RanAt)
}

// List returns run records newest first.
func (r *HistoryRepository) List(limit int) ([]*model.BroadcastRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, set_name, message, total, sent, failed, ran_at
		FROM broadcast_history
		ORDER BY ran_at DESC, id DESC
		LIMIT $1`

	rows, err := r.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*model.BroadcastRun{}
	for rows.Next() {
		var run model.BroadcastRun
		if err := rows.Scan(&run.ID, &run.SetName, &run.Message, &run.Total, &run.Sent, &run.Failed, &run.RanAt); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
