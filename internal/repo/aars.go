package repo

import (
	"context"
	"database/sql"
	"strings"

	"senryaku/internal/domain"
)

const aarCols = `id,sortie_id,energy_before,energy_after,outcome,actual_blocks,COALESCE(notes,'') AS notes,created_at`

func scanAAR(scan func(...any) error) (domain.AAR, error) {
	var a domain.AAR
	err := scan(&a.ID, &a.SortieID, &a.EnergyBefore, &a.EnergyAfter, &a.Outcome, &a.ActualBlocks, &a.Notes, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) InsertAAR(ctx context.Context, tx *sql.Tx, a domain.AAR) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO aars(id,sortie_id,energy_before,energy_after,outcome,actual_blocks,notes,created_at)
VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.SortieID, a.EnergyBefore, a.EnergyAfter, a.Outcome, a.ActualBlocks, nullable(a.Notes), a.CreatedAt)
	return err
}

func (r Repo) GetAAR(ctx context.Context, id string) (domain.AAR, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+aarCols+` FROM aars WHERE id=?`, id)
	return scanAAR(row.Scan)
}

type AARFilters struct {
	SortieID string
	Since    string
}

func (r Repo) ListAARs(ctx context.Context, f AARFilters) ([]domain.AAR, error) {
	var clauses []string
	var args []any
	if f.SortieID != "" {
		clauses = append(clauses, "sortie_id=?")
		args = append(args, f.SortieID)
	}
	if f.Since != "" {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + aarCols + ` FROM aars ` + where + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AAR
	for rows.Next() {
		a, err := scanAAR(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// WindowedCampaignBlocks sums AAR.actual_blocks over [start, end) for a
// campaign, joining AAR -> Sortie -> Mission. Timestamps are RFC 3339 UTC
// strings, so lexicographic comparison matches chronological order.
func (r Repo) WindowedCampaignBlocks(ctx context.Context, campaignID, start, end string) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(a.actual_blocks), 0)
FROM aars a
JOIN sorties s ON s.id = a.sortie_id
JOIN missions m ON m.id = s.mission_id
WHERE m.campaign_id = ? AND a.created_at >= ? AND a.created_at < ?`, campaignID, start, end).Scan(&total)
	return total, err
}

// CampaignBlocksSince sums AAR.actual_blocks for a campaign with no upper
// bound on created_at.
func (r Repo) CampaignBlocksSince(ctx context.Context, campaignID, cutoff string) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(a.actual_blocks), 0)
FROM aars a
JOIN sorties s ON s.id = a.sortie_id
JOIN missions m ON m.id = s.mission_id
WHERE m.campaign_id = ? AND a.created_at >= ?`, campaignID, cutoff).Scan(&total)
	return total, err
}
