package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/ingestion"
	"github.com/rpattn/slicereports/internal/repository"
)

type memoryIssues struct {
	entries []domain.ImportLogEntry
	calls   int
}

func (m *memoryIssues) Record(_ context.Context, entry domain.ImportLogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryIssues) List(_ context.Context, runID uuid.UUID, limit, offset int) ([]domain.ImportLogEntry, error) {
	m.calls++
	var out []domain.ImportLogEntry
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func TestWriteReportIncludesRunIssues(t *testing.T) {
	run := uuid.New()
	issues := &memoryIssues{}
	for i := 0; i < repository.DefaultImportLogLimit+1; i++ {
		issues.entries = append(issues.entries, domain.ImportLogEntry{RunID: run, FileName: "bad.json", ErrorMessage: "invalid json"})
	}
	issues.entries = append(issues.entries, domain.ImportLogEntry{RunID: uuid.New(), FileName: "other.json"})

	var buf bytes.Buffer
	require.NoError(t, writeReport(context.Background(), &buf, ingestion.Summary{RunID: run, Files: 3, Failed: 1}, issues))

	var got struct {
		RunID  uuid.UUID               `json:"run_id"`
		Files  int                     `json:"files"`
		Failed int                     `json:"failed"`
		Issues []domain.ImportLogEntry `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, run, got.RunID)
	assert.Equal(t, 3, got.Files)
	assert.Equal(t, 1, got.Failed)
	assert.Len(t, got.Issues, repository.DefaultImportLogLimit+1)
	assert.Equal(t, 2, issues.calls, "issues are paged until a short page")
}

func TestWriteReportWithoutIssues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(context.Background(), &buf, ingestion.Summary{RunID: uuid.New()}, nil))
	assert.NotContains(t, buf.String(), "issues")
}
