package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures a file level problem seen during an import run.
type ImportLogEntry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RunID        uuid.UUID `db:"run_id" json:"run_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	Verb         *string   `db:"verb" json:"verb,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
