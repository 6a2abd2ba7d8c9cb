package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/repository"
)

type stubMembershipStore struct {
	users    map[string]int64
	projects map[string]int64

	memberships []domain.Membership
	ended       map[int64]time.Time
}

func newStubStore() *stubMembershipStore {
	return &stubMembershipStore{
		users:    map[string]int64{"alice": 1},
		projects: map[string]int64{"proj-1": 10},
		ended:    map[int64]time.Time{},
	}
}

func (s *stubMembershipStore) ProjectIDByUUID(_ context.Context, projectUUID string) (int64, error) {
	if id, ok := s.projects[projectUUID]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("project %s: %w", projectUUID, repository.ErrNotFound)
}

func (s *stubMembershipStore) UserIDByUUID(_ context.Context, userUUID string) (int64, error) {
	if id, ok := s.users[userUUID]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("user %s: %w", userUUID, repository.ErrNotFound)
}

func (s *stubMembershipStore) AddOrUpdateMembership(_ context.Context, m domain.Membership) (int64, error) {
	m.ID = int64(len(s.memberships) + 1)
	s.memberships = append(s.memberships, m)
	return m.ID, nil
}

func (s *stubMembershipStore) ActiveMembership(_ context.Context, userID, projectID int64) (domain.Membership, error) {
	for i := len(s.memberships) - 1; i >= 0; i-- {
		m := s.memberships[i]
		if _, closed := s.ended[m.ID]; m.UserID == userID && m.ProjectID == projectID && !closed {
			return m, nil
		}
	}
	return domain.Membership{}, repository.ErrNotFound
}

func (s *stubMembershipStore) EndMembership(_ context.Context, id int64, endTime time.Time) error {
	s.ended[id] = endTime
	return nil
}

type stubIssueLog struct {
	entries []domain.ImportLogEntry
}

func (l *stubIssueLog) Record(_ context.Context, entry domain.ImportLogEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func writeEvent(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func event(verb, ts, user, project string) string {
	return fmt.Sprintf(`{"csel_eventdetail_verb":%q,"csel_timestamp":%q,"csel_eventdetail_attr_value":%q,"csel_identifier_prj_uuid":%q}`,
		verb, ts, user, project)
}

func TestImportDirAppliesEventsInTimestampOrder(t *testing.T) {
	dir := t.TempDir()
	// the remove sorts first by file name but happened later
	writeEvent(t, dir, "a-remove.json", event(VerbRemove, "2024-03-02 09:00:00,250000", "usr:alice", "proj-1"))
	writeEvent(t, dir, "b-add.json", event(VerbAdd, "2024-03-01 08:30:00,000001", "usr:alice", "proj-1"))

	store := newStubStore()
	summary, err := NewMembershipImporter(store).ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}

	if summary.Files != 2 || summary.Added != 1 || summary.Removed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(store.memberships) != 1 {
		t.Fatalf("expected 1 membership, got %d", len(store.memberships))
	}
	m := store.memberships[0]
	if m.MembershipType != domain.MembershipMember || !m.Active {
		t.Fatalf("unexpected membership: %+v", m)
	}
	wantStart := time.Date(2024, 3, 1, 8, 30, 0, 1000, time.UTC)
	if !m.StartTime.Equal(wantStart) {
		t.Fatalf("expected start %s, got %s", wantStart, m.StartTime)
	}
	wantEnd := time.Date(2024, 3, 2, 9, 0, 0, 250000000, time.UTC)
	if got := store.ended[m.ID]; !got.Equal(wantEnd) {
		t.Fatalf("expected end %s, got %s", wantEnd, got)
	}
}

func TestImportDirCountsProblemsWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	writeEvent(t, dir, "unknown-user.json", event(VerbAdd, "2024-03-01 08:30:00,000000", "usr:mallory", "proj-1"))
	writeEvent(t, dir, "other-verb.json", event("create", "2024-03-01 08:30:00,000000", "usr:alice", "proj-1"))
	writeEvent(t, dir, "broken.json", "{not json")
	writeEvent(t, dir, "bad-time.json", event(VerbAdd, "yesterday", "usr:alice", "proj-1"))
	writeEvent(t, dir, "nothing-to-remove.json", event(VerbRemove, "2024-03-01 08:30:00,000000", "usr:alice", "proj-1"))
	writeEvent(t, dir, "notes.txt", "ignored")

	issues := &stubIssueLog{}
	summary, err := NewMembershipImporter(newStubStore(), WithIssueLog(issues)).ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}
	if summary.RunID == uuid.Nil {
		t.Fatalf("expected a run id")
	}

	want := Summary{RunID: summary.RunID, Files: 5, Skipped: 2, Unresolved: 1, Failed: 2}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}

	wantFiles := []string{"bad-time.json", "broken.json", "nothing-to-remove.json", "unknown-user.json"}
	if len(issues.entries) != len(wantFiles) {
		t.Fatalf("expected %d issues, got %+v", len(wantFiles), issues.entries)
	}
	for i, entry := range issues.entries {
		if entry.FileName != wantFiles[i] {
			t.Fatalf("issue %d: expected %s, got %s", i, wantFiles[i], entry.FileName)
		}
		if entry.RunID != summary.RunID {
			t.Fatalf("issue %d: run id %s does not match %s", i, entry.RunID, summary.RunID)
		}
		if entry.ErrorMessage == "" {
			t.Fatalf("issue %d: empty message", i)
		}
	}
	if issues.entries[0].Verb != nil {
		t.Fatalf("unreadable file should carry no verb")
	}
	if v := issues.entries[2].Verb; v == nil || *v != VerbRemove {
		t.Fatalf("expected verb %s on skipped removal", VerbRemove)
	}
}

func TestImportDirMissingDirectory(t *testing.T) {
	_, err := NewMembershipImporter(newStubStore()).ImportDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestEventUserUUID(t *testing.T) {
	if got := (Event{UserValue: " usr:abc-123 "}).UserUUID(); got != "abc-123" {
		t.Fatalf("expected abc-123, got %q", got)
	}
}
