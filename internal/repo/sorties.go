package repo

import (
	"context"
	"database/sql"
	"strings"

	"senryaku/internal/domain"
)

const sortieCols = `id,mission_id,title,COALESCE(description,'') AS description,cognitive_load,estimated_blocks,status,sort_order,created_at,started_at,completed_at`

const sortieColsS = `s.id,s.mission_id,s.title,COALESCE(s.description,'') AS description,s.cognitive_load,s.estimated_blocks,s.status,s.sort_order,s.created_at,s.started_at,s.completed_at`

func scanSortie(scan func(...any) error) (domain.Sortie, error) {
	var s domain.Sortie
	var startedAt, completedAt sql.NullString
	err := scan(&s.ID, &s.MissionID, &s.Title, &s.Description, &s.CognitiveLoad, &s.EstimatedBlocks, &s.Status, &s.SortOrder, &s.CreatedAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if startedAt.Valid {
		s.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	return s, err
}

func (r Repo) InsertSortie(ctx context.Context, tx *sql.Tx, s domain.Sortie) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sorties(id,mission_id,title,description,cognitive_load,estimated_blocks,status,sort_order,created_at,started_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.MissionID, s.Title, nullable(s.Description), s.CognitiveLoad, s.EstimatedBlocks, s.Status, s.SortOrder, s.CreatedAt, nullableStringPtr(s.StartedAt), nullableStringPtr(s.CompletedAt))
	return err
}

func (r Repo) UpdateSortie(ctx context.Context, tx *sql.Tx, s domain.Sortie) error {
	res, err := tx.ExecContext(ctx, `UPDATE sorties SET title=?, description=?, cognitive_load=?, estimated_blocks=?, status=?, sort_order=?, started_at=?, completed_at=? WHERE id=?`,
		s.Title, nullable(s.Description), s.CognitiveLoad, s.EstimatedBlocks, s.Status, s.SortOrder, nullableStringPtr(s.StartedAt), nullableStringPtr(s.CompletedAt), s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetSortie(ctx context.Context, id string) (domain.Sortie, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+sortieCols+` FROM sorties WHERE id=?`, id)
	return scanSortie(row.Scan)
}

type SortieFilters struct {
	MissionID string
	Status    domain.SortieStatus
}

func (r Repo) ListSorties(ctx context.Context, f SortieFilters) ([]domain.Sortie, error) {
	var clauses []string
	var args []any
	if f.MissionID != "" {
		clauses = append(clauses, "mission_id=?")
		args = append(args, f.MissionID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + sortieCols + ` FROM sorties ` + where + ` ORDER BY sort_order ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sortie
	for rows.Next() {
		s, err := scanSortie(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// QueuedSortiesForCampaign returns queued sorties of a campaign ordered by
// sort_order within their mission.
func (r Repo) QueuedSortiesForCampaign(ctx context.Context, campaignID string) ([]domain.Sortie, error) {
	query := `SELECT ` + sortieColsS + `
FROM sorties s
JOIN missions m ON m.id = s.mission_id
WHERE m.campaign_id = ? AND s.status = ?
ORDER BY s.sort_order ASC, s.id ASC`
	rows, err := r.DB.QueryContext(ctx, query, campaignID, domain.SortieQueued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sortie
	for rows.Next() {
		s, err := scanSortie(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// NextQueuedSortie returns the first queued sortie for a campaign by
// sort_order, or ErrNotFound.
func (r Repo) NextQueuedSortie(ctx context.Context, campaignID string) (domain.Sortie, error) {
	query := `SELECT ` + sortieColsS + `
FROM sorties s
JOIN missions m ON m.id = s.mission_id
WHERE m.campaign_id = ? AND s.status = ?
ORDER BY s.sort_order ASC, s.id ASC LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, campaignID, domain.SortieQueued)
	return scanSortie(row.Scan)
}

// SortiesUnderBlockedMissions returns every sortie whose mission is blocked
// and whose campaign is active, regardless of sortie status.
func (r Repo) SortiesUnderBlockedMissions(ctx context.Context) ([]domain.Sortie, error) {
	query := `SELECT ` + sortieColsS + `
FROM sorties s
JOIN missions m ON m.id = s.mission_id
JOIN campaigns c ON c.id = m.campaign_id
WHERE c.status = ? AND m.status = ?
ORDER BY s.sort_order ASC, s.id ASC`
	rows, err := r.DB.QueryContext(ctx, query, domain.CampaignActive, domain.MissionBlocked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sortie
	for rows.Next() {
		s, err := scanSortie(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// LastSortieCompletion returns MAX(completed_at) among a campaign's
// completed sorties, or ErrNotFound when none exist.
func (r Repo) LastSortieCompletion(ctx context.Context, campaignID string) (string, error) {
	var last sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(s.completed_at)
FROM sorties s
JOIN missions m ON m.id = s.mission_id
WHERE m.campaign_id = ? AND s.status = ? AND s.completed_at IS NOT NULL`, campaignID, domain.SortieCompleted).Scan(&last)
	if err != nil {
		return "", err
	}
	if !last.Valid {
		return "", ErrNotFound
	}
	return last.String, nil
}
