package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/Keburichi/excelbot/internal/app/service"
)

const memberPageSize = 1000

// Roster reads the guild member list and role list for the directory import.
type Roster struct {
	s       *discordgo.Session
	guildID string
}

func NewRoster(s *discordgo.Session, guildID string) *Roster {
	return &Roster{s: s, guildID: guildID}
}

func (r *Roster) GuildMembers(ctx context.Context) ([]service.RosterMember, error) {
	var out []service.RosterMember
	after := ""
	for {
		page, err := r.s.GuildMembers(r.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, gm := range page {
			if gm.User == nil || gm.User.Bot {
				continue
			}
			name := gm.Nick
			if name == "" {
				name = gm.User.Username
			}
			out = append(out, service.RosterMember{
				ID:        gm.User.ID,
				Name:      name,
				AvatarURL: gm.User.AvatarURL("256"),
				RoleIDs:   gm.Roles,
			})
			after = gm.User.ID
		}
		if len(page) < memberPageSize {
			return out, nil
		}
	}
}

func (r *Roster) GuildRoles(ctx context.Context) ([]service.RosterRole, error) {
	roles, err := r.s.GuildRoles(r.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]service.RosterRole, 0, len(roles))
	for _, role := range roles {
		out = append(out, service.RosterRole{ID: role.ID, Name: role.Name})
	}
	return out, nil
}
