package storage

import "time"

type Member struct {
	DiscordID      string
	DiscordName    string
	DiscordAvatar  string
	Subbed         *bool
	LodestoneID    *string
	RoleIDs        []string
	LastSyncTime   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Derived from member_roles at query time
	IsAdmin  bool
	IsMember bool
}

type MemberRole struct {
	DiscordRoleID string
	Name          string
	IsAdmin       bool
	IsMember      bool
}

// FightType classifies high-end duty tiers. Stored as text.
type FightType string

const (
	FightNormal       FightType = "Normal"
	FightExtreme      FightType = "Extreme"
	FightSavage       FightType = "Savage"
	FightLegacySavage FightType = "LegacySavage"
	FightUltimate     FightType = "Ultimate"
	FightChaotic      FightType = "Chaotic"
)

type Fight struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
	Type        FightType

	// FFLogs catalog linkage; nil for hand-entered fights
	EncounterID   *int
	ZoneID        *int
	ZoneName      *string
	DifficultyID  *int
	ExpansionID   *int
	ExpansionName *string
	IsFrozen      bool
}

type LotteryGuess struct {
	DiscordID string    `json:"discord_id"`
	Number    int       `json:"number"`
	GuessedAt time.Time `json:"guessed_at"`
}

type ExtraLotteryGuess struct {
	DiscordID string
	Reason    string
	AwardedAt time.Time
}

type LotteryResult struct {
	ID            int64
	WinningNumber int
	Guesses       []LotteryGuess
	CreatedAt     time.Time
}

type ImportType string

const (
	ImportFights         ImportType = "FightImport"
	ImportMemberActivity ImportType = "MemberActivitySync"
)

type ImportLog struct {
	ID              int64
	ImportType      ImportType
	StartTime       time.Time
	EndTime         time.Time
	ItemsProcessed  int
	ItemsUpdated    int
	ItemsSkipped    int
	APIRequestCount int
	Success         bool
	ErrorMessage    *string
}
