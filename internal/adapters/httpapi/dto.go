package httpapi

import (
	"time"

	"github.com/Keburichi/excelbot/internal/infra/storage"
	"github.com/Keburichi/excelbot/internal/redact"
)

// MemberDTO is the member directory payload. Anonymous callers get the
// identity block only; the rest is cleared by Redact per view.
type MemberDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`

	// member view
	LodestoneID *string `json:"lodestone_id,omitempty"`
	Subbed      *bool   `json:"subbed,omitempty"`
	Experience  []int64 `json:"experience,omitempty"`

	// admin view
	RoleIDs  []string   `json:"role_ids,omitempty"`
	LastSync *time.Time `json:"last_fflogs_sync,omitempty"`
	IsAdmin  *bool      `json:"is_admin,omitempty"`
	IsMember *bool      `json:"is_member,omitempty"`
}

func (m *MemberDTO) Redact(v redact.View, seen redact.Seen) {
	if m == nil || !seen.Visit(m) {
		return
	}
	if !v.Member {
		m.LodestoneID = nil
		m.Subbed = nil
		m.Experience = nil
	}
	if !v.Admin {
		m.RoleIDs = nil
		m.LastSync = nil
		m.IsAdmin = nil
		m.IsMember = nil
	}
}

func memberDTO(m storage.Member) *MemberDTO {
	isAdmin, isMember := m.IsAdmin, m.IsMember
	return &MemberDTO{
		ID:          m.DiscordID,
		Name:        m.DiscordName,
		Avatar:      m.DiscordAvatar,
		LodestoneID: m.LodestoneID,
		Subbed:      m.Subbed,
		RoleIDs:     m.RoleIDs,
		LastSync:    m.LastSyncTime,
		IsAdmin:     &isAdmin,
		IsMember:    &isMember,
	}
}

type FightDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	ZoneName  *string `json:"zone_name,omitempty"`
	Expansion *string `json:"expansion,omitempty"`
	Frozen    bool    `json:"frozen"`
}

func fightDTO(f storage.Fight) FightDTO {
	return FightDTO{
		ID:        f.ID,
		Name:      f.Name,
		Type:      string(f.Type),
		ZoneName:  f.ZoneName,
		Expansion: f.ExpansionName,
		Frozen:    f.IsFrozen,
	}
}

// LotterySummaryDTO is served on an admin-only route, so nothing in it needs
// per-field redaction.
type LotterySummaryDTO struct {
	Guesses []storage.LotteryGuess  `json:"guesses"`
	Awards  []lotteryAwardDTO       `json:"awards"`
	Recent  []lotteryResultShortDTO `json:"recent_results"`
}

type lotteryAwardDTO struct {
	DiscordID string    `json:"discord_id"`
	Reason    string    `json:"reason"`
	AwardedAt time.Time `json:"awarded_at"`
}

type lotteryResultShortDTO struct {
	WinningNumber int       `json:"winning_number"`
	GuessCount    int       `json:"guess_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type ImportLogDTO struct {
	Type        string    `json:"type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Processed   int       `json:"processed"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	APIRequests int       `json:"api_requests"`
	Success     bool      `json:"success"`
	Error       *string   `json:"error,omitempty"`
}
