// Package ingestion loads external event data into the report store.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/logger"
	"github.com/rpattn/slicereports/internal/repository"
)

// Event verbs handled by the importer. Other verbs are skipped.
const (
	VerbAdd    = "modify-add"
	VerbRemove = "modify-remove"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// MembershipStore is the subset of repository.IngestionRepository the
// importer writes through.
type MembershipStore interface {
	ProjectIDByUUID(ctx context.Context, projectUUID string) (int64, error)
	UserIDByUUID(ctx context.Context, userUUID string) (int64, error)
	AddOrUpdateMembership(ctx context.Context, membership domain.Membership) (int64, error)
	ActiveMembership(ctx context.Context, userID, projectID int64) (domain.Membership, error)
	EndMembership(ctx context.Context, id int64, endTime time.Time) error
}

// Event is one project membership change.
type Event struct {
	Verb        string `json:"csel_eventdetail_verb"`
	Timestamp   string `json:"csel_timestamp"`
	UserValue   string `json:"csel_eventdetail_attr_value"`
	ProjectUUID string `json:"csel_identifier_prj_uuid"`

	file string
	at   time.Time
}

// UserUUID strips the "usr:" prefix from the event's attribute value.
func (e Event) UserUUID() string {
	return strings.TrimPrefix(strings.TrimSpace(e.UserValue), "usr:")
}

// IssueRecorder persists file level problems. repository.ImportLogRepository
// satisfies it.
type IssueRecorder interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
}

// Summary counts the outcome of one import run.
type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	Files      int       `json:"files"`
	Added      int       `json:"added"`
	Removed    int       `json:"removed"`
	Skipped    int       `json:"skipped"`
	Unresolved int       `json:"unresolved"`
	Failed     int       `json:"failed"`
}

// MembershipImporter applies membership events to the store.
type MembershipImporter struct {
	store  MembershipStore
	issues IssueRecorder
}

// Option configures a MembershipImporter.
type Option func(*MembershipImporter)

// WithIssueLog records failed, unresolved and skipped removals on rec.
func WithIssueLog(rec IssueRecorder) Option {
	return func(m *MembershipImporter) { m.issues = rec }
}

// NewMembershipImporter creates an importer writing through store.
func NewMembershipImporter(store MembershipStore, opts ...Option) *MembershipImporter {
	m := &MembershipImporter{store: store}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ImportDir applies every *.json event in dir in timestamp order. Bad files
// and unknown users or projects are counted and logged; only a failure to
// read dir itself is returned.
func (m *MembershipImporter) ImportDir(ctx context.Context, dir string) (Summary, error) {
	summary := Summary{RunID: uuid.New()}
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"dir": dir, "run": summary.RunID})

	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, fmt.Errorf("failed to read event directory: %w", err)
	}

	var events []Event
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		summary.Files++
		path := filepath.Join(dir, entry.Name())
		event, err := readEvent(path)
		if err != nil {
			summary.Failed++
			log.WithError(err).WithField("file", path).Error("failed to read membership event")
			m.record(ctx, summary.RunID, path, "", err.Error())
			continue
		}
		if event == nil {
			summary.Skipped++
			continue
		}
		events = append(events, *event)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		m.apply(ctx, summary.RunID, event, &summary)
	}

	log.WithFields(logrus.Fields{
		"files":      summary.Files,
		"added":      summary.Added,
		"removed":    summary.Removed,
		"skipped":    summary.Skipped,
		"unresolved": summary.Unresolved,
		"failed":     summary.Failed,
	}).Info("membership import finished")
	return summary, nil
}

// readEvent parses one file. A nil event means the verb is not a membership change.
func readEvent(path string) (*Event, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if event.Verb != VerbAdd && event.Verb != VerbRemove {
		return nil, nil
	}
	at, err := parseTimestamp(event.Timestamp)
	if err != nil {
		return nil, err
	}
	event.at = at
	event.file = path
	return &event, nil
}

// parseTimestamp accepts "2006-01-02 15:04:05,000000" style stamps (UTC) and RFC 3339.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func (m *MembershipImporter) apply(ctx context.Context, runID uuid.UUID, event Event, summary *Summary) {
	issue := func(msg string) { m.record(ctx, runID, event.file, event.Verb, msg) }
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"file":    event.file,
		"verb":    event.Verb,
		"user":    event.UserUUID(),
		"project": event.ProjectUUID,
	})

	userID, err := m.store.UserIDByUUID(ctx, event.UserUUID())
	if err != nil {
		m.unresolved(log, err, summary)
		issue(err.Error())
		return
	}
	projectID, err := m.store.ProjectIDByUUID(ctx, event.ProjectUUID)
	if err != nil {
		m.unresolved(log, err, summary)
		issue(err.Error())
		return
	}

	switch event.Verb {
	case VerbAdd:
		start := event.at
		_, err := m.store.AddOrUpdateMembership(ctx, domain.Membership{
			UserID:         userID,
			ProjectID:      projectID,
			StartTime:      &start,
			MembershipType: domain.MembershipMember,
			Active:         true,
		})
		if err != nil {
			summary.Failed++
			log.WithError(err).Error("failed to add membership")
			issue(err.Error())
			return
		}
		summary.Added++
		log.Debug("membership added")

	case VerbRemove:
		membership, err := m.store.ActiveMembership(ctx, userID, projectID)
		if errors.Is(err, repository.ErrNotFound) {
			summary.Skipped++
			log.Warn("no active membership to remove")
			issue("no active membership to remove")
			return
		}
		if err == nil {
			err = m.store.EndMembership(ctx, membership.ID, event.at)
		}
		if err != nil {
			summary.Failed++
			log.WithError(err).Error("failed to remove membership")
			issue(err.Error())
			return
		}
		summary.Removed++
		log.Debug("membership removed")
	}
}

func (m *MembershipImporter) unresolved(log *logrus.Entry, err error, summary *Summary) {
	if errors.Is(err, repository.ErrNotFound) {
		summary.Unresolved++
		log.Warn("could not resolve user or project")
		return
	}
	summary.Failed++
	log.WithError(err).Error("failed to resolve user or project")
}

func (m *MembershipImporter) record(ctx context.Context, runID uuid.UUID, file, verb, msg string) {
	if m.issues == nil {
		return
	}
	entry := domain.ImportLogEntry{RunID: runID, FileName: filepath.Base(file), ErrorMessage: msg}
	if verb != "" {
		entry.Verb = &verb
	}
	if err := m.issues.Record(ctx, entry); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("failed to record import issue")
	}
}
