package service

import (
	"context"
	"time"

	"github.com/Keburichi/excelbot/internal/adapters/fflogs"
	"github.com/Keburichi/excelbot/internal/infra/storage"
)

// Consumer-side ports. Implemented by internal/infra/storage and the adapters.

type MemberStore interface {
	GetByDiscordID(ctx context.Context, discordID string) (storage.Member, error)
	List(ctx context.Context) ([]storage.Member, error)
	ListForSync(ctx context.Context, limit int) ([]storage.Member, error)
	Upsert(ctx context.Context, m storage.Member) error
	SetSubscribed(ctx context.Context, discordID string, subbed bool) error
	SetVerificationToken(ctx context.Context, discordID, token string) error
	VerificationToken(ctx context.Context, discordID string) (string, error)
	SetLodestoneID(ctx context.Context, discordID, lodestoneID string) error
	ExperienceFightIDs(ctx context.Context, discordID string) ([]int64, error)
	AddExperience(ctx context.Context, discordID string, fightIDs []int64) error
	TouchSyncTime(ctx context.Context, discordID string, t time.Time) error
}

type RoleStore interface {
	UpsertRoles(ctx context.Context, roles []storage.MemberRole) error
	List(ctx context.Context) ([]storage.MemberRole, error)
	SetFlags(ctx context.Context, discordRoleID string, isAdmin, isMember bool) error
}

type FightStore interface {
	List(ctx context.Context) ([]storage.Fight, error)
	Create(ctx context.Context, f storage.Fight) error
	SetFrozen(ctx context.Context, encounterID int, frozen bool) error
}

type LotteryStore interface {
	GuessesFor(ctx context.Context, discordID string) ([]storage.LotteryGuess, error)
	AllGuesses(ctx context.Context) ([]storage.LotteryGuess, error)
	GuessersOf(ctx context.Context, number int) ([]string, error)
	InsertGuess(ctx context.Context, g storage.LotteryGuess) error
	DeleteGuess(ctx context.Context, discordID string, number int) (bool, error)
	AwardsFor(ctx context.Context, discordID string) ([]storage.ExtraLotteryGuess, error)
	AllAwards(ctx context.Context) ([]storage.ExtraLotteryGuess, error)
	InsertAward(ctx context.Context, a storage.ExtraLotteryGuess) error
	FlushPeriod(ctx context.Context) error
	ArchiveResult(ctx context.Context, res storage.LotteryResult) error
	RecentResults(ctx context.Context, limit int) ([]storage.LotteryResult, error)
}

type ImportLogStore interface {
	Create(ctx context.Context, l storage.ImportLog) error
}

// Notifier posts human-readable messages to a channel. Best effort: delivery
// failures must never fail the operation that triggered them.
type Notifier interface {
	Post(ctx context.Context, channelID, text string)
}

// RaidLogAPI is implemented by internal/adapters/fflogs.Client.
type RaidLogAPI interface {
	WorldData(ctx context.Context) (*fflogs.WorldData, error)
	CharacterZoneRankings(ctx context.Context, lodestoneID int64, zoneID, difficultyID int) (*fflogs.ZoneRankings, error)
}

// ProfileBioReader is implemented by internal/adapters/lodestone.Client.
type ProfileBioReader interface {
	CharacterBio(ctx context.Context, lodestoneID string) (string, error)
}

// RosterMember and RosterRole are the guild-side shapes the directory import
// consumes, decoupled from any chat platform SDK.
type RosterMember struct {
	ID        string
	Name      string
	AvatarURL string
	RoleIDs   []string
}

type RosterRole struct {
	ID   string
	Name string
}

// RosterProvider is implemented by internal/adapters/discord.Roster.
type RosterProvider interface {
	GuildMembers(ctx context.Context) ([]RosterMember, error)
	GuildRoles(ctx context.Context) ([]RosterRole, error)
}
