package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/slicereports/internal/domain"
)

func TestUserRecordKeepsStoredFields(t *testing.T) {
	registered := time.Date(2023, 5, 4, 12, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	rec := userRecord(domain.User{
		UserUUID:     "u1",
		UserEmail:    strPtr("a@b.com"),
		Name:         strPtr("Ada"),
		Affiliation:  strPtr("RENCI"),
		RegisteredOn: &registered,
		BastionLogin: strPtr("ada_0001"),
	})

	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))

	assert.Equal(t, "Ada", got["name"])
	assert.Equal(t, "RENCI", got["affiliation"])
	assert.Equal(t, "2023-05-04T16:00:00Z", got["registered_on"])
	assert.Equal(t, "ada_0001", got["bastion_login"])
	assert.Contains(t, got, "google_scholar")
	assert.Nil(t, got["scopus"])
}

func TestProjectRecordKeepsStoredFields(t *testing.T) {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	expires := created.AddDate(1, 0, 0)
	rec := projectRecord(domain.Project{ProjectUUID: "p1", CreatedDate: &created, ExpiresOn: &expires})

	require.NotNil(t, rec.CreatedDate)
	assert.Equal(t, "2024-01-02T00:00:00Z", *rec.CreatedDate)
	require.NotNil(t, rec.ExpiresOn)
	assert.Equal(t, "2025-01-02T00:00:00Z", *rec.ExpiresOn)
	assert.Nil(t, rec.RetiredDate)
	assert.Nil(t, rec.LastUpdated)
}
