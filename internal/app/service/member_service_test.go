package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Keburichi/excelbot/internal/infra/storage"
)

func TestImportDirectoryMirrorsRoster(t *testing.T) {
	members := newFakeMemberStore()
	roles := newFakeRoleStore()
	roster := &fakeRoster{
		roles: []RosterRole{{ID: "r1", Name: "Officer"}, {ID: "r2", Name: "Member"}},
		members: []RosterMember{
			{ID: "u1", Name: "Zahrymm", AvatarURL: "https://cdn/avatar1.png", RoleIDs: []string{"r1"}},
			{ID: "u2", Name: "Lilja", RoleIDs: []string{"r2"}},
		},
	}
	svc := NewMemberService(members, members, roles, roster)

	res, err := svc.ImportDirectory(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.MembersUpserted)
	require.Equal(t, 2, res.RolesUpserted)
	require.Equal(t, 0, res.MembersRemoved)

	m, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "Zahrymm", m.DiscordName)
	require.Equal(t, []string{"r1"}, m.RoleIDs)
}

func TestImportDirectoryPreservesVerificationState(t *testing.T) {
	members := newFakeMemberStore()
	roles := newFakeRoleStore()
	roster := &fakeRoster{
		members: []RosterMember{{ID: "u1", Name: "New Name"}},
	}
	svc := NewMemberService(members, members, roles, roster)

	lodestone := "12345"
	members.put(storage.Member{DiscordID: "u1", DiscordName: "Old Name", LodestoneID: &lodestone})
	require.NoError(t, members.AddExperience(context.Background(), "u1", []int64{7}))

	_, err := svc.ImportDirectory(context.Background())
	require.NoError(t, err)

	m, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "New Name", m.DiscordName)
	require.NotNil(t, m.LodestoneID)
	require.Equal(t, "12345", *m.LodestoneID)

	xp, _ := members.ExperienceFightIDs(context.Background(), "u1")
	require.Equal(t, []int64{7}, xp)
}

func TestImportDirectoryRemovesDepartedMembers(t *testing.T) {
	members := newFakeMemberStore()
	roles := newFakeRoleStore()
	roster := &fakeRoster{members: []RosterMember{{ID: "u1", Name: "Stays"}}}
	svc := NewMemberService(members, members, roles, roster)

	members.put(fcMember("u1"))
	members.put(fcMember("gone"))

	res, err := svc.ImportDirectory(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.MembersRemoved)

	_, err = svc.Get(context.Background(), "gone")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestImportDirectoryPreservesRoleFlags(t *testing.T) {
	members := newFakeMemberStore()
	roles := newFakeRoleStore()
	roster := &fakeRoster{roles: []RosterRole{{ID: "r1", Name: "Renamed Officers"}}}
	svc := NewMemberService(members, members, roles, roster)

	require.NoError(t, roles.UpsertRoles(context.Background(), []storage.MemberRole{
		{DiscordRoleID: "r1", Name: "Officers", IsAdmin: true, IsMember: true},
	}))

	_, err := svc.ImportDirectory(context.Background())
	require.NoError(t, err)

	all, err := roles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Renamed Officers", all[0].Name)
	require.True(t, all[0].IsAdmin)
	require.True(t, all[0].IsMember)
}

func TestSetRoleFlags(t *testing.T) {
	roles := newFakeRoleStore()
	svc := NewMemberService(newFakeMemberStore(), newFakeMemberStore(), roles, &fakeRoster{})

	require.NoError(t, roles.UpsertRoles(context.Background(), []storage.MemberRole{
		{DiscordRoleID: "r1", Name: "Officers"},
	}))
	require.NoError(t, svc.SetRoleFlags(context.Background(), "r1", true, true))

	all, err := svc.Roles(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].IsAdmin)
	require.True(t, all[0].IsMember)
}

func TestSetSubscribed(t *testing.T) {
	members := newFakeMemberStore()
	svc := NewMemberService(members, members, newFakeRoleStore(), &fakeRoster{})
	members.put(fcMember("u1"))

	require.NoError(t, svc.SetSubscribed(context.Background(), "u1", true))
	m, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, m.Subbed)
	require.True(t, *m.Subbed)
}
