package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Keburichi/excelbot/internal/adapters/fflogs"
	"github.com/Keburichi/excelbot/internal/infra/storage"
)

// In-memory fakes for the storage and adapter ports.

type fakeMemberStore struct {
	mu      sync.Mutex
	members map[string]storage.Member
	tokens  map[string]string
	xp      map[string][]int64
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{
		members: map[string]storage.Member{},
		tokens:  map[string]string{},
		xp:      map[string][]int64{},
	}
}

func (f *fakeMemberStore) put(m storage.Member) { f.members[m.DiscordID] = m }

func (f *fakeMemberStore) GetByDiscordID(_ context.Context, id string) (storage.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return storage.Member{}, storage.ErrNotFound
	}
	return m, nil
}

func (f *fakeMemberStore) List(context.Context) ([]storage.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Member
	for _, m := range f.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscordID < out[j].DiscordID })
	return out, nil
}

func (f *fakeMemberStore) ListForSync(_ context.Context, limit int) ([]storage.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Member
	for _, m := range f.members {
		if m.LodestoneID != nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastSyncTime, out[j].LastSyncTime
		switch {
		case a == nil && b == nil:
			return out[i].DiscordID < out[j].DiscordID
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMemberStore) Upsert(_ context.Context, m storage.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.members[m.DiscordID]; ok {
		prev.DiscordName = m.DiscordName
		prev.DiscordAvatar = m.DiscordAvatar
		prev.RoleIDs = m.RoleIDs
		f.members[m.DiscordID] = prev
		return nil
	}
	f.members[m.DiscordID] = m
	return nil
}

func (f *fakeMemberStore) SetSubscribed(_ context.Context, id string, subbed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.members[id]
	m.Subbed = &subbed
	f.members[id] = m
	return nil
}

func (f *fakeMemberStore) SetVerificationToken(_ context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return storage.ErrNotFound
	}
	f.tokens[id] = token
	return nil
}

func (f *fakeMemberStore) VerificationToken(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return "", storage.ErrNotFound
	}
	return f.tokens[id], nil
}

func (f *fakeMemberStore) SetLodestoneID(_ context.Context, id, lodestoneID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.LodestoneID = &lodestoneID
	f.members[id] = m
	delete(f.tokens, id)
	return nil
}

func (f *fakeMemberStore) ExperienceFightIDs(_ context.Context, id string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.xp[id]...), nil
}

func (f *fakeMemberStore) AddExperience(_ context.Context, id string, fightIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	have := map[int64]bool{}
	for _, fid := range f.xp[id] {
		have[fid] = true
	}
	for _, fid := range fightIDs {
		if !have[fid] {
			f.xp[id] = append(f.xp[id], fid)
			have[fid] = true
		}
	}
	return nil
}

func (f *fakeMemberStore) TouchSyncTime(_ context.Context, id string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.members[id]
	m.LastSyncTime = &t
	f.members[id] = m
	return nil
}

func (f *fakeMemberStore) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return false, nil
	}
	delete(f.members, id)
	return true, nil
}

type fakeLotteryStore struct {
	mu      sync.Mutex
	guesses []storage.LotteryGuess
	awards  []storage.ExtraLotteryGuess
	results []storage.LotteryResult
}

func (f *fakeLotteryStore) GuessesFor(_ context.Context, id string) ([]storage.LotteryGuess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.LotteryGuess
	for _, g := range f.guesses {
		if g.DiscordID == id {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeLotteryStore) AllGuesses(context.Context) ([]storage.LotteryGuess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.LotteryGuess(nil), f.guesses...), nil
}

func (f *fakeLotteryStore) GuessersOf(_ context.Context, number int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, g := range f.guesses {
		if g.Number == number {
			out = append(out, g.DiscordID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeLotteryStore) InsertGuess(_ context.Context, g storage.LotteryGuess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guesses = append(f.guesses, g)
	return nil
}

func (f *fakeLotteryStore) DeleteGuess(_ context.Context, id string, number int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.guesses {
		if g.DiscordID == id && g.Number == number {
			f.guesses = append(f.guesses[:i], f.guesses[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLotteryStore) AwardsFor(_ context.Context, id string) ([]storage.ExtraLotteryGuess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ExtraLotteryGuess
	for _, a := range f.awards {
		if a.DiscordID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLotteryStore) AllAwards(context.Context) ([]storage.ExtraLotteryGuess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.ExtraLotteryGuess(nil), f.awards...), nil
}

func (f *fakeLotteryStore) InsertAward(_ context.Context, a storage.ExtraLotteryGuess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awards = append(f.awards, a)
	return nil
}

func (f *fakeLotteryStore) FlushPeriod(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guesses = nil
	f.awards = nil
	return nil
}

func (f *fakeLotteryStore) ArchiveResult(_ context.Context, res storage.LotteryResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res.ID = int64(len(f.results) + 1)
	res.CreatedAt = time.Now()
	// newest first, like the repo's RecentResults ordering
	f.results = append([]storage.LotteryResult{res}, f.results...)
	return nil
}

func (f *fakeLotteryStore) RecentResults(_ context.Context, limit int) ([]storage.LotteryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]storage.LotteryResult(nil), f.results...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeFightStore struct {
	mu     sync.Mutex
	nextID int64
	fights []storage.Fight
}

func (f *fakeFightStore) List(context.Context) ([]storage.Fight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Fight(nil), f.fights...), nil
}

func (f *fakeFightStore) Create(_ context.Context, fight storage.Fight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.fights {
		if have.Name == fight.Name && have.Type == fight.Type {
			return nil
		}
		if have.EncounterID != nil && fight.EncounterID != nil && *have.EncounterID == *fight.EncounterID {
			return nil
		}
	}
	f.nextID++
	fight.ID = f.nextID
	f.fights = append(f.fights, fight)
	return nil
}

func (f *fakeFightStore) SetFrozen(_ context.Context, encounterID int, frozen bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, have := range f.fights {
		if have.EncounterID != nil && *have.EncounterID == encounterID {
			f.fights[i].IsFrozen = frozen
		}
	}
	return nil
}

type fakeImportLogStore struct {
	mu   sync.Mutex
	logs []storage.ImportLog
}

func (f *fakeImportLogStore) Create(_ context.Context, l storage.ImportLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	posts []string
}

func (f *fakeNotifier) Post(_ context.Context, _ string, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, text)
}

func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

type fakeRaidLogAPI struct {
	mu       sync.Mutex
	world    *fflogs.WorldData
	worldErr error
	rankings map[string]*fflogs.ZoneRankings
	errs     map[string]error
	calls    []string
}

func rankingsKey(lodestoneID int64, zoneID, difficultyID int) string {
	return fmt.Sprintf("%d/%d/%d", lodestoneID, zoneID, difficultyID)
}

func (f *fakeRaidLogAPI) WorldData(context.Context) (*fflogs.WorldData, error) {
	if f.worldErr != nil {
		return nil, f.worldErr
	}
	return f.world, nil
}

func (f *fakeRaidLogAPI) CharacterZoneRankings(_ context.Context, lodestoneID int64, zoneID, difficultyID int) (*fflogs.ZoneRankings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rankingsKey(lodestoneID, zoneID, difficultyID)
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.rankings[key], nil
}

type fakeBioReader struct {
	bios map[string]string
}

func (f *fakeBioReader) CharacterBio(_ context.Context, lodestoneID string) (string, error) {
	return f.bios[lodestoneID], nil
}

type fakeRoster struct {
	members []RosterMember
	roles   []RosterRole
}

func (f *fakeRoster) GuildMembers(context.Context) ([]RosterMember, error) { return f.members, nil }
func (f *fakeRoster) GuildRoles(context.Context) ([]RosterRole, error)    { return f.roles, nil }

type fakeRoleStore struct {
	mu    sync.Mutex
	roles map[string]storage.MemberRole
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{roles: map[string]storage.MemberRole{}}
}

func (f *fakeRoleStore) UpsertRoles(_ context.Context, roles []storage.MemberRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range roles {
		if prev, ok := f.roles[r.DiscordRoleID]; ok {
			prev.Name = r.Name
			f.roles[r.DiscordRoleID] = prev
			continue
		}
		f.roles[r.DiscordRoleID] = r
	}
	return nil
}

func (f *fakeRoleStore) SetFlags(_ context.Context, discordRoleID string, isAdmin, isMember bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.roles[discordRoleID]
	r.DiscordRoleID = discordRoleID
	r.IsAdmin = isAdmin
	r.IsMember = isMember
	f.roles[discordRoleID] = r
	return nil
}

func (f *fakeRoleStore) List(context.Context) ([]storage.MemberRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.MemberRole
	for _, r := range f.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscordRoleID < out[j].DiscordRoleID })
	return out, nil
}

// test member helpers

func fcMember(id string) storage.Member {
	return storage.Member{DiscordID: id, DiscordName: "member-" + id, IsMember: true}
}

func fcAdmin(id string) storage.Member {
	return storage.Member{DiscordID: id, DiscordName: "admin-" + id, IsMember: true, IsAdmin: true}
}

func outsider(id string) storage.Member {
	return storage.Member{DiscordID: id, DiscordName: "guest-" + id}
}
