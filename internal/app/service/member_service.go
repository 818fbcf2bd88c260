package service

import (
	"context"

	"github.com/Keburichi/excelbot/internal/infra/storage"
)

// MemberDeleter is the optional departure-pruning surface of the member
// store. Split from MemberStore so most callers can't reach it.
type MemberDeleter interface {
	Delete(ctx context.Context, discordID string) (bool, error)
}

// MemberService mirrors the guild roster into the member directory.
type MemberService struct {
	members MemberStore
	pruner  MemberDeleter
	roles   RoleStore
	roster  RosterProvider
}

func NewMemberService(members MemberStore, pruner MemberDeleter, roles RoleStore, roster RosterProvider) *MemberService {
	return &MemberService{members: members, pruner: pruner, roles: roles, roster: roster}
}

// DirectoryImportResult summarises one roster mirror pass.
type DirectoryImportResult struct {
	MembersUpserted int
	MembersRemoved  int
	RolesUpserted   int
}

// ImportDirectory mirrors guild roles and members into the directory. Upserts
// only touch roster-owned columns; Lodestone linkage, verification state,
// subscription flags and clear records survive every pass. Members who left
// the guild are removed.
func (s *MemberService) ImportDirectory(ctx context.Context) (DirectoryImportResult, error) {
	var res DirectoryImportResult

	guildRoles, err := s.roster.GuildRoles(ctx)
	if err != nil {
		return res, err
	}
	rows := make([]storage.MemberRole, 0, len(guildRoles))
	for _, r := range guildRoles {
		rows = append(rows, storage.MemberRole{DiscordRoleID: r.ID, Name: r.Name})
	}
	if err := s.roles.UpsertRoles(ctx, rows); err != nil {
		return res, err
	}
	res.RolesUpserted = len(rows)

	guildMembers, err := s.roster.GuildMembers(ctx)
	if err != nil {
		return res, err
	}
	present := map[string]bool{}
	for _, gm := range guildMembers {
		present[gm.ID] = true
		err := s.members.Upsert(ctx, storage.Member{
			DiscordID:     gm.ID,
			DiscordName:   gm.Name,
			DiscordAvatar: gm.AvatarURL,
			RoleIDs:       gm.RoleIDs,
		})
		if err != nil {
			return res, err
		}
		res.MembersUpserted++
	}

	known, err := s.members.List(ctx)
	if err != nil {
		return res, err
	}
	for _, m := range known {
		if present[m.DiscordID] {
			continue
		}
		removed, err := s.pruner.Delete(ctx, m.DiscordID)
		if err != nil {
			return res, err
		}
		if removed {
			res.MembersRemoved++
		}
	}
	return res, nil
}

// List returns the full member directory.
func (s *MemberService) List(ctx context.Context) ([]storage.Member, error) {
	return s.members.List(ctx)
}

// Get returns one member by discord id.
func (s *MemberService) Get(ctx context.Context, discordID string) (storage.Member, error) {
	return s.members.GetByDiscordID(ctx, discordID)
}

// SetSubscribed flips the event-ping opt-in for one member.
func (s *MemberService) SetSubscribed(ctx context.Context, discordID string, subbed bool) error {
	return s.members.SetSubscribed(ctx, discordID, subbed)
}

// Roles returns the known guild roles and their access flags.
func (s *MemberService) Roles(ctx context.Context) ([]storage.MemberRole, error) {
	return s.roles.List(ctx)
}

// SetRoleFlags marks a guild role as granting admin or member access. Flags
// are never inferred from the guild, they are assigned here.
func (s *MemberService) SetRoleFlags(ctx context.Context, discordRoleID string, isAdmin, isMember bool) error {
	return s.roles.SetFlags(ctx, discordRoleID, isAdmin, isMember)
}
