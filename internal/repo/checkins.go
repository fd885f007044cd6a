package repo

import (
	"context"
	"database/sql"

	"senryaku/internal/domain"
)

const checkinCols = `id,date,energy_level,available_blocks,COALESCE(focus_note,'') AS focus_note,created_at`

func scanCheckIn(scan func(...any) error) (domain.DailyCheckIn, error) {
	var c domain.DailyCheckIn
	err := scan(&c.ID, &c.Date, &c.EnergyLevel, &c.AvailableBlocks, &c.FocusNote, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// UpsertCheckIn inserts or replaces the check-in for its date.
func (r Repo) UpsertCheckIn(ctx context.Context, tx *sql.Tx, c domain.DailyCheckIn) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO checkins(id,date,energy_level,available_blocks,focus_note,created_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(date) DO UPDATE SET energy_level=excluded.energy_level, available_blocks=excluded.available_blocks, focus_note=excluded.focus_note`,
		c.ID, c.Date, c.EnergyLevel, c.AvailableBlocks, nullable(c.FocusNote), c.CreatedAt)
	return err
}

func (r Repo) GetCheckIn(ctx context.Context, date string) (domain.DailyCheckIn, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+checkinCols+` FROM checkins WHERE date=?`, date)
	return scanCheckIn(row.Scan)
}

// ListCheckIns returns check-ins with date in [from, to], both inclusive,
// ordered by date.
func (r Repo) ListCheckIns(ctx context.Context, from, to string) ([]domain.DailyCheckIn, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+checkinCols+` FROM checkins WHERE date >= ? AND date <= ? ORDER BY date ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DailyCheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
