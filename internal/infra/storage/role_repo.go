package storage

import (
	"context"
	"database/sql"
)

type RoleRepo struct{ db *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

// UpsertRoles refreshes display names from the guild. The is_admin/is_member
// flags are assigned by hand and must survive re-imports, so the upsert only
// touches the name.
func (r *RoleRepo) UpsertRoles(ctx context.Context, roles []MemberRole) error {
	for _, role := range roles {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO member_roles (discord_role_id, name)
VALUES ($1,$2)
ON CONFLICT (discord_role_id) DO UPDATE SET
  name = EXCLUDED.name
`, role.DiscordRoleID, role.Name)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RoleRepo) List(ctx context.Context) ([]MemberRole, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT discord_role_id, name, is_admin, is_member
  FROM member_roles
 ORDER BY name ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberRole
	for rows.Next() {
		var role MemberRole
		if err := rows.Scan(&role.DiscordRoleID, &role.Name, &role.IsAdmin, &role.IsMember); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *RoleRepo) SetFlags(ctx context.Context, discordRoleID string, isAdmin, isMember bool) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE member_roles SET is_admin = $2, is_member = $3 WHERE discord_role_id = $1
`, discordRoleID, isAdmin, isMember)
	return err
}
