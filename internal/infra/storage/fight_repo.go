package storage

import (
	"context"
	"database/sql"
	"errors"
)

type FightRepo struct{ db *sql.DB }

func NewFightRepo(db *sql.DB) *FightRepo { return &FightRepo{db: db} }

const fightColumns = `
  id, name, description, image_url, fight_type,
  fflogs_encounter_id, fflogs_zone_id, fflogs_zone_name, fflogs_difficulty_id,
  fflogs_expansion_id, fflogs_expansion_name, is_frozen`

func scanFight(row interface{ Scan(...any) error }) (Fight, error) {
	var f Fight
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.ImageURL, &f.Type,
		&f.EncounterID, &f.ZoneID, &f.ZoneName, &f.DifficultyID,
		&f.ExpansionID, &f.ExpansionName, &f.IsFrozen)
	if errors.Is(err, sql.ErrNoRows) {
		return Fight{}, ErrNotFound
	}
	return f, err
}

func (r *FightRepo) List(ctx context.Context) ([]Fight, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+fightColumns+`
  FROM fights
 ORDER BY fflogs_expansion_id ASC NULLS LAST, name ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fight
	for rows.Next() {
		f, err := scanFight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FightRepo) Get(ctx context.Context, id int64) (Fight, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+fightColumns+`
  FROM fights
 WHERE id = $1
`, id)
	return scanFight(row)
}

// Create inserts a catalog fight. Collisions from re-imports are ignored on
// every unique constraint: (name, fight_type) for unchanged rows, and the
// encounter id when upstream renames a fight without reassigning its id.
func (r *FightRepo) Create(ctx context.Context, f Fight) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO fights
  (name, description, image_url, fight_type,
   fflogs_encounter_id, fflogs_zone_id, fflogs_zone_name, fflogs_difficulty_id,
   fflogs_expansion_id, fflogs_expansion_name, is_frozen)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT DO NOTHING
`, f.Name, f.Description, f.ImageURL, f.Type,
		f.EncounterID, f.ZoneID, f.ZoneName, f.DifficultyID,
		f.ExpansionID, f.ExpansionName, f.IsFrozen)
	return err
}

func (r *FightRepo) SetFrozen(ctx context.Context, encounterID int, frozen bool) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE fights SET is_frozen = $2 WHERE fflogs_encounter_id = $1
`, encounterID, frozen)
	return err
}
