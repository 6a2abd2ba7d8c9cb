package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
)

type ingestionRepository struct {
	db db.DBTX
}

// NewIngestionRepository creates the write side over exec. Multi-statement
// upserts (slices) should run inside db.Connection.WithTx.
func NewIngestionRepository(exec db.DBTX) IngestionRepository {
	return &ingestionRepository{db: exec}
}

func (r *ingestionRepository) AddOrUpdateProject(ctx context.Context, p domain.Project) (int64, error) {
	if p.ProjectUUID == "" {
		return 0, errors.New("project_uuid is required")
	}
	query := `
		INSERT INTO projects (project_uuid, project_name, project_type, active, created_date, expires_on, retired_date, last_updated)
		VALUES ($1, NULLIF($2::text, ''), NULLIF($3::text, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (project_uuid) DO UPDATE SET
			project_name = COALESCE(EXCLUDED.project_name, projects.project_name),
			project_type = COALESCE(EXCLUDED.project_type, projects.project_type),
			active = COALESCE(EXCLUDED.active, projects.active),
			created_date = COALESCE(EXCLUDED.created_date, projects.created_date),
			expires_on = COALESCE(EXCLUDED.expires_on, projects.expires_on),
			retired_date = COALESCE(EXCLUDED.retired_date, projects.retired_date),
			last_updated = COALESCE(EXCLUDED.last_updated, projects.last_updated)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, p.ProjectUUID, p.ProjectName, p.ProjectType, p.Active,
		p.CreatedDate, p.ExpiresOn, p.RetiredDate, p.LastUpdated).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert project %s: %w", p.ProjectUUID, err)
	}
	return id, nil
}

func (r *ingestionRepository) AddOrUpdateUser(ctx context.Context, u domain.User) (int64, error) {
	if u.UserUUID == "" {
		return 0, errors.New("user_uuid is required")
	}
	query := `
		INSERT INTO users (user_uuid, user_email, active, name, affiliation, registered_on, last_updated, google_scholar, scopus, bastion_login)
		VALUES ($1, NULLIF($2::text, ''), $3, NULLIF($4::text, ''), NULLIF($5::text, ''), $6, $7,
			NULLIF($8::text, ''), NULLIF($9::text, ''), NULLIF($10::text, ''))
		ON CONFLICT (user_uuid) DO UPDATE SET
			user_email = COALESCE(EXCLUDED.user_email, users.user_email),
			active = COALESCE(EXCLUDED.active, users.active),
			name = COALESCE(EXCLUDED.name, users.name),
			affiliation = COALESCE(EXCLUDED.affiliation, users.affiliation),
			registered_on = COALESCE(EXCLUDED.registered_on, users.registered_on),
			last_updated = COALESCE(EXCLUDED.last_updated, users.last_updated),
			google_scholar = COALESCE(EXCLUDED.google_scholar, users.google_scholar),
			scopus = COALESCE(EXCLUDED.scopus, users.scopus),
			bastion_login = COALESCE(EXCLUDED.bastion_login, users.bastion_login)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, u.UserUUID, u.UserEmail, u.Active, u.Name, u.Affiliation,
		u.RegisteredOn, u.LastUpdated, u.GoogleScholar, u.Scopus, u.BastionLogin).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert user %s: %w", u.UserUUID, err)
	}
	return id, nil
}

func (r *ingestionRepository) AddOrUpdateMembership(ctx context.Context, m domain.Membership) (int64, error) {
	if m.UserID == 0 || m.ProjectID == 0 {
		return 0, errors.New("membership requires user_id and project_id")
	}
	membershipType := strings.ToLower(strings.TrimSpace(m.MembershipType))
	if membershipType == "" {
		membershipType = domain.MembershipMember
	}
	query := `
		INSERT INTO memberships (user_id, project_id, start_time, end_time, membership_type, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT uq_membership DO UPDATE SET
			end_time = COALESCE(EXCLUDED.end_time, memberships.end_time),
			active = EXCLUDED.active
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, m.UserID, m.ProjectID, m.StartTime, m.EndTime, membershipType, m.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert membership: %w", err)
	}
	return id, nil
}

// AddOrUpdateSlice upserts by slice_guid. A zero State keeps the stored one
// (Nascent on insert). Slivers already stored under the slice are moved to
// the slice's current project and user.
func (r *ingestionRepository) AddOrUpdateSlice(ctx context.Context, s domain.Slice) (int64, error) {
	if s.SliceGUID == "" {
		return 0, errors.New("slice_guid is required")
	}
	if s.ProjectID == 0 || s.UserID == 0 {
		return 0, fmt.Errorf("slice %s requires project_id and user_id", s.SliceGUID)
	}
	query := `
		INSERT INTO slices (slice_guid, project_id, user_id, slice_name, state, lease_start, lease_end)
		VALUES ($1, $2, $3, NULLIF($4::text, ''), COALESCE(NULLIF($5::int, 0), 1), $6, $7)
		ON CONFLICT (slice_guid) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			user_id = EXCLUDED.user_id,
			slice_name = COALESCE(EXCLUDED.slice_name, slices.slice_name),
			state = CASE WHEN $5::int = 0 THEN slices.state ELSE EXCLUDED.state END,
			lease_start = COALESCE(EXCLUDED.lease_start, slices.lease_start),
			lease_end = COALESCE(EXCLUDED.lease_end, slices.lease_end)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, s.SliceGUID, s.ProjectID, s.UserID, s.SliceName, int(s.State),
		s.LeaseStart, s.LeaseEnd).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert slice %s: %w", s.SliceGUID, err)
	}

	_, err = r.db.Exec(ctx, `
		UPDATE slivers SET project_id = $2, user_id = $3
		WHERE slice_id = $1 AND (project_id <> $2 OR user_id <> $3)
	`, id, s.ProjectID, s.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to realign slivers of slice %s: %w", s.SliceGUID, err)
	}
	return id, nil
}

// AddOrUpdateSliver upserts by sliver_guid. Project and user are copied from
// the parent slice; ErrNotFound is returned when SliceID does not exist.
func (r *ingestionRepository) AddOrUpdateSliver(ctx context.Context, sl domain.Sliver) (int64, error) {
	if sl.SliverGUID == "" {
		return 0, errors.New("sliver_guid is required")
	}
	var sliverType *string
	if sl.SliverType != nil && *sl.SliverType != "" {
		sliverType = strPtr(strings.ToLower(*sl.SliverType))
	}
	query := `
		INSERT INTO slivers (sliver_guid, slice_id, project_id, user_id, host_id, site_id, node_id, state,
			sliver_type, ip_subnet, ip_v4, ip_v6, image, core, ram, disk, bandwidth, error, lease_start, lease_end)
		SELECT $1::text, s.id, s.project_id, s.user_id, NULLIF($3::bigint, 0), NULLIF($4::bigint, 0),
			NULLIF($5::text, ''), COALESCE(NULLIF($6::int, 0), 1), $7::text, NULLIF($8::text, ''),
			NULLIF($9::text, ''), NULLIF($10::text, ''), NULLIF($11::text, ''), $12::int, $13::int,
			$14::int, $15::int, NULLIF($16::text, ''), $17::timestamptz, $18::timestamptz
		FROM slices s WHERE s.id = $2
		ON CONFLICT (sliver_guid) DO UPDATE SET
			slice_id = EXCLUDED.slice_id,
			project_id = EXCLUDED.project_id,
			user_id = EXCLUDED.user_id,
			host_id = COALESCE(EXCLUDED.host_id, slivers.host_id),
			site_id = COALESCE(EXCLUDED.site_id, slivers.site_id),
			node_id = COALESCE(EXCLUDED.node_id, slivers.node_id),
			state = CASE WHEN $6::int = 0 THEN slivers.state ELSE EXCLUDED.state END,
			sliver_type = COALESCE(EXCLUDED.sliver_type, slivers.sliver_type),
			ip_subnet = COALESCE(EXCLUDED.ip_subnet, slivers.ip_subnet),
			ip_v4 = COALESCE(EXCLUDED.ip_v4, slivers.ip_v4),
			ip_v6 = COALESCE(EXCLUDED.ip_v6, slivers.ip_v6),
			image = COALESCE(EXCLUDED.image, slivers.image),
			core = COALESCE(EXCLUDED.core, slivers.core),
			ram = COALESCE(EXCLUDED.ram, slivers.ram),
			disk = COALESCE(EXCLUDED.disk, slivers.disk),
			bandwidth = COALESCE(EXCLUDED.bandwidth, slivers.bandwidth),
			error = COALESCE(EXCLUDED.error, slivers.error),
			lease_start = COALESCE(EXCLUDED.lease_start, slivers.lease_start),
			lease_end = COALESCE(EXCLUDED.lease_end, slivers.lease_end)
		RETURNING id
	`
	var hostID, siteID int64
	if sl.HostID != nil {
		hostID = *sl.HostID
	}
	if sl.SiteID != nil {
		siteID = *sl.SiteID
	}
	var id int64
	err := r.db.QueryRow(ctx, query, sl.SliverGUID, sl.SliceID, hostID, siteID, sl.NodeID, int(sl.State),
		sliverType, sl.IPSubnet, sl.IPv4, sl.IPv6, sl.Image, sl.Core, sl.RAM, sl.Disk, sl.Bandwidth,
		sl.Error, sl.LeaseStart, sl.LeaseEnd).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("slice %d for sliver %s: %w", sl.SliceID, sl.SliverGUID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert sliver %s: %w", sl.SliverGUID, err)
	}
	return id, nil
}

func (r *ingestionRepository) AddOrUpdateComponent(ctx context.Context, c domain.Component) (string, error) {
	if c.SliverID == 0 || c.ComponentGUID == "" {
		return "", errors.New("component requires sliver_id and component_guid")
	}
	var bdfs any
	if len(c.BDFs) > 0 {
		bdfs = c.BDFs
	}
	query := `
		INSERT INTO components (sliver_id, component_guid, type, model, bdfs, node_id, component_node_id)
		VALUES ($1, $2, NULLIF(lower($3::text), ''), NULLIF(lower($4::text), ''), $5::jsonb,
			NULLIF($6::text, ''), NULLIF($7::text, ''))
		ON CONFLICT (sliver_id, component_guid) DO UPDATE SET
			type = COALESCE(EXCLUDED.type, components.type),
			model = COALESCE(EXCLUDED.model, components.model),
			bdfs = COALESCE(EXCLUDED.bdfs, components.bdfs),
			node_id = COALESCE(EXCLUDED.node_id, components.node_id),
			component_node_id = COALESCE(EXCLUDED.component_node_id, components.component_node_id)
		RETURNING component_guid
	`
	var guid string
	err := r.db.QueryRow(ctx, query, c.SliverID, c.ComponentGUID, c.Type, c.Model, bdfs,
		c.NodeID, c.ComponentNodeID).Scan(&guid)
	if err != nil {
		return "", fmt.Errorf("failed to upsert component %s: %w", c.ComponentGUID, err)
	}
	return guid, nil
}

func (r *ingestionRepository) AddOrUpdateInterface(ctx context.Context, i domain.Interface) (string, error) {
	if i.SliverID == 0 || i.InterfaceGUID == "" {
		return "", errors.New("interface requires sliver_id and interface_guid")
	}
	var siteID int64
	if i.SiteID != nil {
		siteID = *i.SiteID
	}
	query := `
		INSERT INTO interfaces (sliver_id, interface_guid, vlan, bdf, local_name, device_name, name, site_id)
		VALUES ($1, $2, NULLIF($3::text, ''), NULLIF($4::text, ''), NULLIF($5::text, ''),
			NULLIF($6::text, ''), NULLIF($7::text, ''), NULLIF($8::bigint, 0))
		ON CONFLICT (sliver_id, interface_guid) DO UPDATE SET
			vlan = COALESCE(EXCLUDED.vlan, interfaces.vlan),
			bdf = COALESCE(EXCLUDED.bdf, interfaces.bdf),
			local_name = COALESCE(EXCLUDED.local_name, interfaces.local_name),
			device_name = COALESCE(EXCLUDED.device_name, interfaces.device_name),
			name = COALESCE(EXCLUDED.name, interfaces.name),
			site_id = COALESCE(EXCLUDED.site_id, interfaces.site_id)
		RETURNING interface_guid
	`
	var guid string
	err := r.db.QueryRow(ctx, query, i.SliverID, i.InterfaceGUID, i.VLAN, i.BDF, i.LocalName,
		i.DeviceName, i.Name, siteID).Scan(&guid)
	if err != nil {
		return "", fmt.Errorf("failed to upsert interface %s: %w", i.InterfaceGUID, err)
	}
	return guid, nil
}

// AddOrUpdateHost returns the host id for name. A host keeps the first site
// it was registered with; siteID 0 means unknown.
func (r *ingestionRepository) AddOrUpdateHost(ctx context.Context, name string, siteID int64) (int64, error) {
	if name == "" {
		return 0, errors.New("host name is required")
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO hosts (name, site_id) VALUES ($1, NULLIF($2::bigint, 0))
		ON CONFLICT (name) DO UPDATE SET site_id = COALESCE(hosts.site_id, EXCLUDED.site_id)
		RETURNING id
	`, name, siteID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert host %s: %w", name, err)
	}
	return id, nil
}

func (r *ingestionRepository) AddOrUpdateSite(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("site name is required")
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO sites (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert site %s: %w", name, err)
	}
	return id, nil
}

func (r *ingestionRepository) DeleteProject(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, tableProjects, id)
}

func (r *ingestionRepository) DeleteUser(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, tableUsers, id)
}

func (r *ingestionRepository) DeleteSlice(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, tableSlices, id)
}

// deleteByID removes one row; dependent rows go with it through ON DELETE CASCADE.
func (r *ingestionRepository) deleteByID(ctx context.Context, tbl table, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", tbl), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", tbl, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ingestionRepository) ProjectIDByUUID(ctx context.Context, projectUUID string) (int64, error) {
	return r.idByKey(ctx, "SELECT id FROM projects WHERE project_uuid = $1", "project", projectUUID)
}

func (r *ingestionRepository) UserIDByUUID(ctx context.Context, userUUID string) (int64, error) {
	return r.idByKey(ctx, "SELECT id FROM users WHERE user_uuid = $1", "user", userUUID)
}

func (r *ingestionRepository) idByKey(ctx context.Context, query, kind, key string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, query, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s %s: %w", kind, key, err)
	}
	return id, nil
}

// ActiveMembership returns the most recent open membership of user in project.
func (r *ingestionRepository) ActiveMembership(ctx context.Context, userID, projectID int64) (domain.Membership, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, project_id, start_time, end_time, membership_type, active
		FROM memberships
		WHERE user_id = $1 AND project_id = $2 AND active AND end_time IS NULL
		ORDER BY start_time DESC NULLS LAST, id DESC
		LIMIT 1
	`, userID, projectID)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("failed to query membership: %w", err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Membership])
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Membership{}, fmt.Errorf("membership of user %d in project %d: %w", userID, projectID, ErrNotFound)
	}
	if err != nil {
		return domain.Membership{}, fmt.Errorf("failed to scan membership: %w", err)
	}
	return m, nil
}

// EndMembership closes a membership at endTime.
func (r *ingestionRepository) EndMembership(ctx context.Context, id int64, endTime time.Time) error {
	tag, err := r.db.Exec(ctx, "UPDATE memberships SET end_time = $2, active = FALSE WHERE id = $1", id, endTime)
	if err != nil {
		return fmt.Errorf("failed to end membership %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membership %d: %w", id, ErrNotFound)
	}
	return nil
}
