package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Keburichi/excelbot/internal/adapters/fflogs"
	"github.com/Keburichi/excelbot/internal/infra/storage"
)

// fightImportInterval is how long a successful catalog import suppresses the
// next one. Tracked in memory only: a restart may import again, which is
// harmless because the catalog writes are idempotent.
const fightImportInterval = 24 * time.Hour

// ultimateNames identifies ultimate zones named after the fight itself,
// where neither the zone nor the difficulty says "ultimate".
var ultimateNames = []string{
	"futures rewritten",
	"omega protocol",
	"dragonsong's reprise",
	"the epic of alexander",
	"the unending coil of bahamut",
	"the weapon's refrain",
}

// SyncService keeps the fight catalog and member clear records aligned with
// FFLogs.
type SyncService struct {
	members MemberStore
	fights  FightStore
	logs    ImportLogStore
	api     RaidLogAPI

	membersPerWave int
	requestDelay   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu          sync.Mutex
	lastCatalog time.Time
}

func NewSyncService(members MemberStore, fights FightStore, logs ImportLogStore, api RaidLogAPI, membersPerWave int, requestDelay time.Duration) *SyncService {
	return &SyncService{
		members:        members,
		fights:         fights,
		logs:           logs,
		api:            api,
		membersPerWave: membersPerWave,
		requestDelay:   requestDelay,
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// FightImportResult summarises one catalog import run.
type FightImportResult struct {
	Skipped   bool
	Created   int
	Ignored   int
	Processed int
}

// ImportFights refreshes the fight catalog from the FFLogs zone index. At
// most one run per day does real work; within the window the call is a cheap
// no-op.
func (s *SyncService) ImportFights(ctx context.Context) (FightImportResult, error) {
	s.mu.Lock()
	if !s.lastCatalog.IsZero() && s.now().Sub(s.lastCatalog) < fightImportInterval {
		s.mu.Unlock()
		return FightImportResult{Skipped: true}, nil
	}
	s.mu.Unlock()

	started := s.now().UTC()
	res, err := s.importFights(ctx)
	s.writeLog(ctx, storage.ImportLog{
		ImportType:      storage.ImportFights,
		StartTime:       started,
		EndTime:         s.now().UTC(),
		ItemsProcessed:  res.Processed,
		ItemsUpdated:    res.Created,
		ItemsSkipped:    res.Ignored,
		APIRequestCount: 1,
		Success:         err == nil,
		ErrorMessage:    errMessage(err),
	})
	if err != nil {
		return FightImportResult{}, err
	}

	s.mu.Lock()
	s.lastCatalog = s.now()
	s.mu.Unlock()
	return res, nil
}

func (s *SyncService) importFights(ctx context.Context) (FightImportResult, error) {
	world, err := s.api.WorldData(ctx)
	if err != nil {
		return FightImportResult{}, err
	}

	latestID := 0
	for _, exp := range world.WorldData.Expansions {
		if exp.ID > latestID {
			latestID = exp.ID
		}
	}

	var res FightImportResult
	seen := map[int]bool{}
	for _, exp := range world.WorldData.Expansions {
		latest := exp.ID == latestID
		for _, zone := range exp.Zones {
			difficulty := pickDifficulty(zone.Difficulties)
			for _, enc := range zone.Encounters {
				res.Processed++
				if seen[enc.ID] {
					res.Ignored++
					continue
				}
				seen[enc.ID] = true

				ft := classifyFight(zone.Name, difficulty.Name, latest)
				if ft == storage.FightNormal {
					res.Ignored++
					continue
				}

				f := storage.Fight{
					Name:          enc.Name,
					Type:          ft,
					EncounterID:   intPtr(enc.ID),
					ZoneID:        intPtr(zone.ID),
					ZoneName:      strPtr(zone.Name),
					DifficultyID:  intPtr(difficulty.ID),
					ExpansionID:   intPtr(exp.ID),
					ExpansionName: strPtr(exp.Name),
					IsFrozen:      zone.Frozen,
				}
				if err := s.fights.Create(ctx, f); err != nil {
					return FightImportResult{}, err
				}
				// creates ignore conflicts, so re-imports refresh the
				// freeze state separately
				if err := s.fights.SetFrozen(ctx, enc.ID, zone.Frozen); err != nil {
					return FightImportResult{}, err
				}
				res.Created++
			}
		}
	}
	return res, nil
}

// pickDifficulty prefers the savage tier of a zone when it has one, otherwise
// the first listed difficulty.
func pickDifficulty(ds []fflogs.Difficulty) fflogs.Difficulty {
	for _, d := range ds {
		if strings.Contains(strings.ToLower(d.Name), "savage") {
			return d
		}
	}
	if len(ds) > 0 {
		return ds[0]
	}
	return fflogs.Difficulty{}
}

// classifyFight maps FFLogs zone metadata onto the catalog tiers. Savage
// content of past expansions is tracked separately so cleared-tier stats stay
// meaningful. The known-ultimate name list runs last: it only rescues zones
// that every other check has already passed over.
func classifyFight(zoneName, difficultyName string, latestExpansion bool) storage.FightType {
	zone := strings.ToLower(zoneName)

	savage := storage.FightSavage
	if !latestExpansion {
		savage = storage.FightLegacySavage
	}

	switch {
	case strings.Contains(strings.ToLower(difficultyName), "savage"):
		return savage
	case strings.Contains(zone, "ultimate"):
		return storage.FightUltimate
	case strings.Contains(zone, "extreme") || strings.Contains(zone, "minstrel"):
		return storage.FightExtreme
	case strings.Contains(zone, "chaotic"):
		return storage.FightChaotic
	case strings.Contains(zone, "savage"):
		return savage
	case isUltimateName(zone):
		return storage.FightUltimate
	default:
		return storage.FightNormal
	}
}

func isUltimateName(lowered string) bool {
	for _, n := range ultimateNames {
		if strings.Contains(lowered, n) {
			return true
		}
	}
	return false
}

// ActivitySyncResult summarises one wave of member clear syncing.
type ActivitySyncResult struct {
	MembersSynced int
	ClearsAdded   int
	APIRequests   int
	// Failed maps discord id to the error that stopped that member's sync.
	// One bad profile never blocks the rest of the wave.
	Failed map[string]string
}

// SyncMemberActivity pulls zone rankings for the next wave of verified
// members and appends any new clears. Sync time advances for every attempted
// member so the rotation keeps moving past failures.
func (s *SyncService) SyncMemberActivity(ctx context.Context) (ActivitySyncResult, error) {
	started := s.now().UTC()
	res, err := s.syncWave(ctx)
	s.writeLog(ctx, storage.ImportLog{
		ImportType:      storage.ImportMemberActivity,
		StartTime:       started,
		EndTime:         s.now().UTC(),
		ItemsProcessed:  res.MembersSynced + len(res.Failed),
		ItemsUpdated:    res.ClearsAdded,
		ItemsSkipped:    len(res.Failed),
		APIRequestCount: res.APIRequests,
		Success:         err == nil,
		ErrorMessage:    errMessage(err),
	})
	return res, err
}

// zoneKey addresses one rankings query: a zone at a difficulty.
type zoneKey struct {
	ZoneID       int
	DifficultyID int
}

func (s *SyncService) syncWave(ctx context.Context) (ActivitySyncResult, error) {
	res := ActivitySyncResult{Failed: map[string]string{}}

	wave, err := s.members.ListForSync(ctx, s.membersPerWave)
	if err != nil {
		return res, err
	}
	catalog, err := s.fights.List(ctx)
	if err != nil {
		return res, err
	}

	for i, m := range wave {
		if i > 0 {
			s.sleep(ctx, s.requestDelay)
		}
		added, requests, err := s.syncMember(ctx, m, catalog)
		res.APIRequests += requests
		if err != nil {
			if ctx.Err() != nil {
				return res, err
			}
			res.Failed[m.DiscordID] = err.Error()
		} else {
			res.MembersSynced++
			res.ClearsAdded += added
		}
		if err := s.members.TouchSyncTime(ctx, m.DiscordID, s.now().UTC()); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *SyncService) syncMember(ctx context.Context, m storage.Member, catalog []storage.Fight) (added, requests int, err error) {
	if m.LodestoneID == nil {
		return 0, 0, fmt.Errorf("member %s has no lodestone id", m.DiscordID)
	}
	lodestoneID, err := strconv.ParseInt(*m.LodestoneID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("member %s lodestone id %q: %w", m.DiscordID, *m.LodestoneID, err)
	}

	clearedIDs, err := s.members.ExperienceFightIDs(ctx, m.DiscordID)
	if err != nil {
		return 0, 0, err
	}
	cleared := map[int64]bool{}
	for _, id := range clearedIDs {
		cleared[id] = true
	}

	// Only query zones where the member still has something to clear and
	// rankings can still change.
	pending := map[zoneKey][]storage.Fight{}
	for _, f := range catalog {
		if f.IsFrozen || cleared[f.ID] || f.ZoneID == nil || f.DifficultyID == nil || f.EncounterID == nil {
			continue
		}
		k := zoneKey{ZoneID: *f.ZoneID, DifficultyID: *f.DifficultyID}
		pending[k] = append(pending[k], f)
	}

	var newClears []int64
	for _, k := range sortedZoneKeys(pending) {
		if requests > 0 {
			s.sleep(ctx, s.requestDelay)
		}
		if err := ctx.Err(); err != nil {
			return 0, requests, err
		}

		rankings, err := s.api.CharacterZoneRankings(ctx, lodestoneID, k.ZoneID, k.DifficultyID)
		requests++
		if err != nil {
			return 0, requests, err
		}
		if rankings == nil {
			// unknown character: nothing in any zone
			break
		}

		byEncounter := map[int]int64{}
		for _, f := range pending[k] {
			byEncounter[*f.EncounterID] = f.ID
		}
		for _, rank := range rankings.Rankings {
			if rank.TotalKills <= 0 {
				continue
			}
			if fightID, ok := byEncounter[rank.Encounter.ID]; ok {
				newClears = append(newClears, fightID)
			}
		}
	}

	if len(newClears) > 0 {
		if err := s.members.AddExperience(ctx, m.DiscordID, newClears); err != nil {
			return 0, requests, err
		}
	}
	return len(newClears), requests, nil
}

func sortedZoneKeys(m map[zoneKey][]storage.Fight) []zoneKey {
	out := make([]zoneKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		return out[i].DifficultyID < out[j].DifficultyID
	})
	return out
}

// writeLog records the run outcome. Log failures are swallowed: losing a log
// row is better than failing a sync that already happened.
func (s *SyncService) writeLog(ctx context.Context, l storage.ImportLog) {
	_ = s.logs.Create(ctx, l)
}

func errMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
