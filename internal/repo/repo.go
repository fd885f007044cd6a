package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"senryaku/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const campaignCols = `id,name,COALESCE(description,'') AS description,status,priority_rank,weekly_block_target,colour,COALESCE(tags,'') AS tags,target_date,created_at,updated_at`

func scanCampaign(scan func(...any) error) (domain.Campaign, error) {
	var c domain.Campaign
	var targetDate sql.NullString
	err := scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.PriorityRank, &c.WeeklyBlockTarget, &c.Colour, &c.Tags, &targetDate, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if targetDate.Valid {
		c.TargetDate = &targetDate.String
	}
	return c, err
}

func (r Repo) InsertCampaign(ctx context.Context, tx *sql.Tx, c domain.Campaign) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO campaigns(id,name,description,status,priority_rank,weekly_block_target,colour,tags,target_date,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Description), c.Status, c.PriorityRank, c.WeeklyBlockTarget, c.Colour, nullable(c.Tags), nullableStringPtr(c.TargetDate), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) UpdateCampaign(ctx context.Context, tx *sql.Tx, c domain.Campaign) error {
	res, err := tx.ExecContext(ctx, `UPDATE campaigns SET name=?, description=?, status=?, priority_rank=?, weekly_block_target=?, colour=?, tags=?, target_date=?, updated_at=? WHERE id=?`,
		c.Name, nullable(c.Description), c.Status, c.PriorityRank, c.WeeklyBlockTarget, c.Colour, nullable(c.Tags), nullableStringPtr(c.TargetDate), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+campaignCols+` FROM campaigns WHERE id=?`, id)
	return scanCampaign(row.Scan)
}

// ListCampaigns returns campaigns ordered by priority_rank then id so that
// callers iterating the result are deterministic.
func (r Repo) ListCampaigns(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignCols + ` FROM campaigns`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY priority_rank ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) SetCampaignRank(ctx context.Context, tx *sql.Tx, id string, rank int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE campaigns SET priority_rank=?, updated_at=? WHERE id=?`, rank, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	return nil
}

const missionCols = `id,campaign_id,name,COALESCE(description,'') AS description,status,target_date,sort_order,created_at,completed_at`

func scanMission(scan func(...any) error) (domain.Mission, error) {
	var m domain.Mission
	var targetDate, completedAt sql.NullString
	err := scan(&m.ID, &m.CampaignID, &m.Name, &m.Description, &m.Status, &targetDate, &m.SortOrder, &m.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if targetDate.Valid {
		m.TargetDate = &targetDate.String
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.String
	}
	return m, err
}

func (r Repo) InsertMission(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO missions(id,campaign_id,name,description,status,target_date,sort_order,created_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID, m.CampaignID, m.Name, nullable(m.Description), m.Status, nullableStringPtr(m.TargetDate), m.SortOrder, m.CreatedAt, nullableStringPtr(m.CompletedAt))
	return err
}

func (r Repo) UpdateMission(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET name=?, description=?, status=?, target_date=?, sort_order=?, completed_at=? WHERE id=?`,
		m.Name, nullable(m.Description), m.Status, nullableStringPtr(m.TargetDate), m.SortOrder, nullableStringPtr(m.CompletedAt), m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+missionCols+` FROM missions WHERE id=?`, id)
	return scanMission(row.Scan)
}

type MissionFilters struct {
	CampaignID string
	Status     domain.MissionStatus
}

func (r Repo) ListMissions(ctx context.Context, f MissionFilters) ([]domain.Mission, error) {
	var clauses []string
	var args []any
	if f.CampaignID != "" {
		clauses = append(clauses, "campaign_id=?")
		args = append(args, f.CampaignID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + missionCols + ` FROM missions ` + where + ` ORDER BY sort_order ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MissionsCompletedSince returns missions whose completed_at is set and at
// or after the cutoff timestamp.
func (r Repo) MissionsCompletedSince(ctx context.Context, cutoff string) ([]domain.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionCols+` FROM missions WHERE completed_at IS NOT NULL AND completed_at >= ? ORDER BY completed_at ASC, id ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MissionsStartedSince returns missions created at or after the cutoff that
// are currently in progress.
func (r Repo) MissionsStartedSince(ctx context.Context, cutoff string) ([]domain.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionCols+` FROM missions WHERE created_at >= ? AND status=? ORDER BY created_at ASC, id ASC`, cutoff, domain.MissionInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
