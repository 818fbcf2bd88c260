package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pq "github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

type MemberRepo struct{ db *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

// memberColumns computes is_admin/is_member from the assigned roles so callers
// never have to re-derive eligibility in Go.
const memberColumns = `
  m.discord_id, m.discord_name, m.discord_avatar, m.subbed, m.lodestone_id,
  m.role_ids, m.last_fflogs_sync_time, m.created_at, m.updated_at,
  EXISTS (SELECT 1 FROM member_roles r WHERE r.discord_role_id = ANY(m.role_ids) AND r.is_admin) AS is_admin,
  EXISTS (SELECT 1 FROM member_roles r WHERE r.discord_role_id = ANY(m.role_ids) AND (r.is_member OR r.is_admin)) AS is_member`

func scanMember(row interface{ Scan(...any) error }) (Member, error) {
	var m Member
	err := row.Scan(&m.DiscordID, &m.DiscordName, &m.DiscordAvatar, &m.Subbed, &m.LodestoneID,
		pq.Array(&m.RoleIDs), &m.LastSyncTime, &m.CreatedAt, &m.UpdatedAt, &m.IsAdmin, &m.IsMember)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	return m, err
}

func (r *MemberRepo) GetByDiscordID(ctx context.Context, discordID string) (Member, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+memberColumns+`
  FROM members m
 WHERE m.discord_id = $1
`, discordID)
	return scanMember(row)
}

func (r *MemberRepo) List(ctx context.Context) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+memberColumns+`
  FROM members m
 ORDER BY m.discord_name ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListForSync returns members with a verified Lodestone id, oldest-synced first
// (never-synced members sort ahead of everyone).
func (r *MemberRepo) ListForSync(ctx context.Context, limit int) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+memberColumns+`
  FROM members m
 WHERE m.lodestone_id IS NOT NULL
 ORDER BY m.last_fflogs_sync_time ASC NULLS FIRST
 LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert refreshes the roster-owned columns. Lodestone id, verification token
// and subscription flag are owned by other flows and never touched here.
func (r *MemberRepo) Upsert(ctx context.Context, m Member) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO members (discord_id, discord_name, discord_avatar, role_ids)
VALUES ($1,$2,$3,$4)
ON CONFLICT (discord_id) DO UPDATE SET
  discord_name   = EXCLUDED.discord_name,
  discord_avatar = EXCLUDED.discord_avatar,
  role_ids       = EXCLUDED.role_ids,
  updated_at     = now()
`, m.DiscordID, m.DiscordName, m.DiscordAvatar, pq.Array(m.RoleIDs))
	return err
}

func (r *MemberRepo) SetSubscribed(ctx context.Context, discordID string, subbed bool) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE members SET subbed = $2, updated_at = now() WHERE discord_id = $1
`, discordID, subbed)
	return err
}

// SetVerificationToken stages a Lodestone ownership check. Only the
// verification flow may call this.
func (r *MemberRepo) SetVerificationToken(ctx context.Context, discordID, token string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE members SET lodestone_verification_token = $2, updated_at = now() WHERE discord_id = $1
`, discordID, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MemberRepo) VerificationToken(ctx context.Context, discordID string) (string, error) {
	var token sql.NullString
	err := r.db.QueryRowContext(ctx, `
SELECT lodestone_verification_token FROM members WHERE discord_id = $1
`, discordID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token.String, nil
}

// SetLodestoneID records a verified profile and clears the token in the same
// statement so a crash can't leave a consumed token behind.
func (r *MemberRepo) SetLodestoneID(ctx context.Context, discordID, lodestoneID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE members
   SET lodestone_id = $2,
       lodestone_verification_token = NULL,
       updated_at = now()
 WHERE discord_id = $1
`, discordID, lodestoneID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MemberRepo) ExperienceFightIDs(ctx context.Context, discordID string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT fight_id FROM member_experience WHERE discord_id = $1
`, discordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddExperience appends clears; re-reporting an already recorded clear is a no-op.
func (r *MemberRepo) AddExperience(ctx context.Context, discordID string, fightIDs []int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO member_experience (discord_id, fight_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING
`, discordID, pq.Array(fightIDs))
	return err
}

func (r *MemberRepo) TouchSyncTime(ctx context.Context, discordID string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE members SET last_fflogs_sync_time = $2 WHERE discord_id = $1
`, discordID, t)
	return err
}

func (r *MemberRepo) Delete(ctx context.Context, discordID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM members WHERE discord_id = $1
`, discordID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
