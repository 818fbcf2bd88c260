package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Keburichi/excelbot/internal/infra/storage"
	"github.com/Keburichi/excelbot/internal/prng"
)

// remindResultWindow is how many archived draws back a member must have
// participated in to be pinged by a reminder.
const remindResultWindow = 3

// LotteryService runs the monthly number lottery: guesses, quota from awarded
// extras, the draw itself, and the reminder digest.
type LotteryService struct {
	members MemberStore
	ledger  LotteryStore
	notify  Notifier

	// channelID is where guess activity and draw results are announced.
	channelID string
}

func NewLotteryService(members MemberStore, ledger LotteryStore, notify Notifier, channelID string) *LotteryService {
	return &LotteryService{members: members, ledger: ledger, notify: notify, channelID: channelID}
}

// memberFor resolves the caller and reports lottery eligibility. Unknown
// callers are simply not eligible.
func (s *LotteryService) memberFor(ctx context.Context, discordID string) (storage.Member, bool, error) {
	m, err := s.members.GetByDiscordID(ctx, discordID)
	if err == storage.ErrNotFound {
		return storage.Member{}, false, nil
	}
	if err != nil {
		return storage.Member{}, false, err
	}
	return m, m.IsMember, nil
}

// quotaFor is one base guess plus one per awarded extra.
func (s *LotteryService) quotaFor(ctx context.Context, discordID string) (int, error) {
	awards, err := s.ledger.AwardsFor(ctx, discordID)
	if err != nil {
		return 0, err
	}
	return 1 + len(awards), nil
}

// Guess registers number for the caller. The full precondition chain runs in
// order: eligibility, range, duplicate, quota.
func (s *LotteryService) Guess(ctx context.Context, discordID string, number int) (GuessOutcome, error) {
	_, eligible, err := s.memberFor(ctx, discordID)
	if err != nil {
		return GuessOutcome{}, err
	}
	if !eligible {
		return GuessOutcome{Kind: GuessNotEligible}, nil
	}
	if number < 1 || number > 99 {
		return GuessOutcome{Kind: GuessOutOfRange, Number: number}, nil
	}

	current, err := s.ledger.GuessesFor(ctx, discordID)
	if err != nil {
		return GuessOutcome{}, err
	}
	for _, g := range current {
		if g.Number == number {
			return GuessOutcome{Kind: GuessAlreadyGuessed, Number: number}, nil
		}
	}

	quota, err := s.quotaFor(ctx, discordID)
	if err != nil {
		return GuessOutcome{}, err
	}
	if len(current) >= quota {
		return GuessOutcome{Kind: GuessQuotaExhausted, Number: number, Guesses: numbersOf(current)}, nil
	}

	if err := s.ledger.InsertGuess(ctx, storage.LotteryGuess{
		DiscordID: discordID,
		Number:    number,
		GuessedAt: time.Now().UTC(),
	}); err != nil {
		return GuessOutcome{}, err
	}

	guesses := append(numbersOf(current), number)
	sort.Ints(guesses)
	s.notify.Post(ctx, s.channelID, fmt.Sprintf("<@%s> has guessed %d! Current guesses: %s.",
		discordID, number, prettyJoin(numberStrings(guesses))))
	return GuessOutcome{Kind: GuessSuccess, Number: number, Guesses: guesses}, nil
}

// RandomGuess draws numbers from the requested pool until one sticks or ctx
// expires. The draw loop runs in its own goroutine so a slow ledger can't
// hold the caller past the deadline; cancellation stops the loop itself, not
// just the wait.
func (s *LotteryService) RandomGuess(ctx context.Context, discordID string, pool GuessPool) (GuessOutcome, error) {
	type result struct {
		out GuessOutcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.drawLoop(ctx, discordID, pool)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return GuessOutcome{Kind: GuessTimedOut}, nil
		}
		return r.out, r.err
	case <-ctx.Done():
		return GuessOutcome{Kind: GuessTimedOut}, nil
	}
}

func (s *LotteryService) drawLoop(ctx context.Context, discordID string, pool GuessPool) (GuessOutcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return GuessOutcome{Kind: GuessTimedOut}, nil
		}
		candidates, err := s.poolNumbers(ctx, pool)
		if err != nil {
			return GuessOutcome{}, err
		}
		if len(candidates) == 0 {
			return GuessOutcome{Kind: GuessOutOfRange}, nil
		}
		out, err := s.Guess(ctx, discordID, prng.Pick(candidates))
		if err != nil {
			return GuessOutcome{}, err
		}
		// A collision with an existing guess just means draw again;
		// every other outcome is terminal.
		if out.Kind != GuessAlreadyGuessed {
			return out, nil
		}
	}
}

func (s *LotteryService) poolNumbers(ctx context.Context, pool GuessPool) ([]int, error) {
	if pool == PoolAny {
		return rangeNumbers(), nil
	}
	all, err := s.ledger.AllGuesses(ctx)
	if err != nil {
		return nil, err
	}
	used := map[int]bool{}
	for _, g := range all {
		used[g.Number] = true
	}
	var out []int
	for n := 1; n <= 99; n++ {
		if used[n] == (pool == PoolUsedOnly) {
			out = append(out, n)
		}
	}
	return out, nil
}

// ChangeGuess swaps one registered number for another without spending quota.
func (s *LotteryService) ChangeGuess(ctx context.Context, discordID string, from, to int) (GuessOutcome, error) {
	_, eligible, err := s.memberFor(ctx, discordID)
	if err != nil {
		return GuessOutcome{}, err
	}
	if !eligible {
		return GuessOutcome{Kind: GuessNotEligible}, nil
	}
	if to < 1 || to > 99 {
		return GuessOutcome{Kind: GuessOutOfRange, Number: to}, nil
	}

	current, err := s.ledger.GuessesFor(ctx, discordID)
	if err != nil {
		return GuessOutcome{}, err
	}
	holdsFrom := false
	for _, g := range current {
		if g.Number == to {
			return GuessOutcome{Kind: GuessAlreadyGuessed, Number: to}, nil
		}
		if g.Number == from {
			holdsFrom = true
		}
	}
	if !holdsFrom {
		return GuessOutcome{Kind: GuessNotCurrentlyGuessed, Number: from}, nil
	}

	if _, err := s.ledger.DeleteGuess(ctx, discordID, from); err != nil {
		return GuessOutcome{}, err
	}
	if err := s.ledger.InsertGuess(ctx, storage.LotteryGuess{
		DiscordID: discordID,
		Number:    to,
		GuessedAt: time.Now().UTC(),
	}); err != nil {
		return GuessOutcome{}, err
	}

	var guesses []int
	for _, g := range current {
		if g.Number != from {
			guesses = append(guesses, g.Number)
		}
	}
	guesses = append(guesses, to)
	sort.Ints(guesses)
	s.notify.Post(ctx, s.channelID, fmt.Sprintf("<@%s> has changed their guess from %d to %d! Current guesses: %s.",
		discordID, from, to, prettyJoin(numberStrings(guesses))))
	return GuessOutcome{Kind: GuessSuccess, Number: to, Guesses: guesses}, nil
}

// WhoGuessed lists the discord ids holding number this period.
func (s *LotteryService) WhoGuessed(ctx context.Context, number int) ([]string, error) {
	return s.ledger.GuessersOf(ctx, number)
}

// UnusedNumbers lists every number in [1, 99] nobody holds yet.
func (s *LotteryService) UnusedNumbers(ctx context.Context) ([]int, error) {
	return s.poolNumbers(ctx, PoolUnusedOnly)
}

// View reports the caller's own guesses and quota.
func (s *LotteryService) View(ctx context.Context, discordID string) (ViewResult, error) {
	_, eligible, err := s.memberFor(ctx, discordID)
	if err != nil {
		return ViewResult{}, err
	}
	if !eligible {
		return ViewResult{}, nil
	}
	current, err := s.ledger.GuessesFor(ctx, discordID)
	if err != nil {
		return ViewResult{}, err
	}
	quota, err := s.quotaFor(ctx, discordID)
	if err != nil {
		return ViewResult{}, err
	}
	return ViewResult{Eligible: true, Guesses: numbersOf(current), Quota: quota}, nil
}

// RunLottery draws the winning number, archives the period, announces the
// result and resets all guesses. Admin only; a disallowed call changes
// nothing.
func (s *LotteryService) RunLottery(ctx context.Context, initiatorID string) (RunOutcome, error) {
	initiator, _, err := s.memberFor(ctx, initiatorID)
	if err != nil {
		return RunOutcome{}, err
	}
	if !initiator.IsAdmin {
		return RunOutcome{}, nil
	}

	all, err := s.ledger.AllGuesses(ctx)
	if err != nil {
		return RunOutcome{}, err
	}

	winning := prng.Between(0, 99)
	roster := map[string][]int{}
	var winners []string
	for _, g := range all {
		roster[g.DiscordID] = append(roster[g.DiscordID], g.Number)
		if g.Number == winning {
			winners = append(winners, g.DiscordID)
		}
	}
	for _, ns := range roster {
		sort.Ints(ns)
	}

	if err := s.ledger.ArchiveResult(ctx, storage.LotteryResult{
		WinningNumber: winning,
		Guesses:       all,
	}); err != nil {
		return RunOutcome{}, err
	}

	s.notify.Post(ctx, s.channelID, drawAnnouncement(winning, winners, roster))

	if err := s.ledger.FlushPeriod(ctx); err != nil {
		return RunOutcome{}, err
	}
	return RunOutcome{Allowed: true, WinningNumber: winning, Winners: winners, Roster: roster}, nil
}

func drawAnnouncement(winning int, winners []string, roster map[string][]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# The lottery has been drawn!\nThe winning number is **%d**.\n", winning)
	if len(winners) == 0 {
		b.WriteString("Nobody guessed it this time. Better luck next month!\n")
	} else {
		fmt.Fprintf(&b, "Congratulations %s!\n", prettyJoin(mentions(winners)))
	}
	if len(roster) > 0 {
		b.WriteString("\nThis period's guesses:\n")
		for _, id := range sortedKeys(roster) {
			fmt.Fprintf(&b, "<@%s>: %s\n", id, prettyJoin(numberStrings(roster[id])))
		}
	}
	return b.String()
}

// Remind nudges members who still have guesses open. Only members seen in one
// of the last few archived draws are pinged; the full breakdown comes back to
// the initiator either way.
func (s *LotteryService) Remind(ctx context.Context, initiatorID string) (RemindOutcome, error) {
	initiator, _, err := s.memberFor(ctx, initiatorID)
	if err != nil {
		return RemindOutcome{}, err
	}
	if !initiator.IsAdmin {
		return RemindOutcome{}, nil
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return RemindOutcome{}, err
	}
	all, err := s.ledger.AllGuesses(ctx)
	if err != nil {
		return RemindOutcome{}, err
	}
	awards, err := s.ledger.AllAwards(ctx)
	if err != nil {
		return RemindOutcome{}, err
	}

	guessCount := map[string]int{}
	for _, g := range all {
		guessCount[g.DiscordID]++
	}
	awardCount := map[string]int{}
	for _, a := range awards {
		awardCount[a.DiscordID]++
	}

	// Members with extra guesses get chased for each open slot; everyone
	// else is only worth a ping when they haven't guessed at all.
	remaining := map[string]int{}
	for _, m := range members {
		if !m.IsMember {
			continue
		}
		if n, ok := awardCount[m.DiscordID]; ok {
			if left := (n + 1) - guessCount[m.DiscordID]; left > 0 {
				remaining[m.DiscordID] = left
			}
		} else if guessCount[m.DiscordID] == 0 {
			remaining[m.DiscordID] = 1
		}
	}

	recent, err := s.ledger.RecentResults(ctx, remindResultWindow)
	if err != nil {
		return RemindOutcome{}, err
	}
	participated := map[string]bool{}
	for _, res := range recent {
		for _, g := range res.Guesses {
			participated[g.DiscordID] = true
		}
	}

	out := RemindOutcome{Allowed: true}
	out.Groups = groupByRemaining(remaining, nil)
	out.Targeted = groupByRemaining(remaining, participated)

	if len(out.Targeted) > 0 {
		var b strings.Builder
		b.WriteString("## Use your guesses before it's too late!\n")
		for _, grp := range out.Targeted {
			fmt.Fprintf(&b, "%d %s remaining: %s\n", grp.Remaining, pluralise("guess", "guesses", grp.Remaining), prettyJoin(mentions(grp.Members)))
		}
		s.notify.Post(ctx, s.channelID, b.String())
	}
	return out, nil
}

// groupByRemaining buckets members by open-slot count, ascending. A non-nil
// filter keeps only members present in it.
func groupByRemaining(remaining map[string]int, filter map[string]bool) []RemindGroup {
	byCount := map[int][]string{}
	for id, n := range remaining {
		if filter != nil && !filter[id] {
			continue
		}
		byCount[n] = append(byCount[n], id)
	}
	counts := make([]int, 0, len(byCount))
	for n := range byCount {
		counts = append(counts, n)
	}
	sort.Ints(counts)

	var out []RemindGroup
	for _, n := range counts {
		sort.Strings(byCount[n])
		out = append(out, RemindGroup{Remaining: n, Members: byCount[n]})
	}
	return out
}

// TryAwardUsers validates an extra-guess grant without performing it.
func (s *LotteryService) TryAwardUsers(ctx context.Context, initiatorID, reason string, targetIDs []string) (AwardOutcome, error) {
	initiator, _, err := s.memberFor(ctx, initiatorID)
	if err != nil {
		return AwardOutcome{}, err
	}
	if !initiator.IsAdmin {
		return AwardOutcome{Kind: AwardNotAllowed}, nil
	}
	if len(targetIDs) == 0 {
		return AwardOutcome{Kind: AwardNoTargets}, nil
	}

	var accepted, rejected []string
	for _, id := range targetIDs {
		_, eligible, err := s.memberFor(ctx, id)
		if err != nil {
			return AwardOutcome{}, err
		}
		if eligible {
			accepted = append(accepted, id)
		} else {
			rejected = append(rejected, id)
		}
	}
	if len(accepted) == 0 {
		return AwardOutcome{Kind: AwardNotEligible, Reason: reason, Rejected: rejected}, nil
	}
	return AwardOutcome{Kind: AwardSuccess, Reason: reason, IDs: accepted, Rejected: rejected}, nil
}

// AwardUsers performs a grant previously validated by TryAwardUsers.
func (s *LotteryService) AwardUsers(ctx context.Context, grant AwardOutcome) error {
	if grant.Kind != AwardSuccess {
		return fmt.Errorf("award grant was not validated: kind %d", grant.Kind)
	}
	now := time.Now().UTC()
	for _, id := range grant.IDs {
		if err := s.ledger.InsertAward(ctx, storage.ExtraLotteryGuess{
			DiscordID: id,
			Reason:    grant.Reason,
			AwardedAt: now,
		}); err != nil {
			return err
		}
	}
	if len(grant.IDs) == 1 {
		s.notify.Post(ctx, s.channelID, fmt.Sprintf("<@%s> has been awarded an extra lottery guess for %s!", grant.IDs[0], grant.Reason))
	} else {
		s.notify.Post(ctx, s.channelID, fmt.Sprintf("%s have been awarded an extra lottery guess for %s!", prettyJoin(mentions(grant.IDs)), grant.Reason))
	}
	return nil
}

func numbersOf(gs []storage.LotteryGuess) []int {
	out := make([]int, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.Number)
	}
	sort.Ints(out)
	return out
}

func rangeNumbers() []int {
	out := make([]int, 0, 99)
	for n := 1; n <= 99; n++ {
		out = append(out, n)
	}
	return out
}

func mentions(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, "<@"+id+">")
	}
	return out
}

func numberStrings(ns []int) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, fmt.Sprintf("%d", n))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// prettyJoin renders "a", "a and b", "a, b and c".
func prettyJoin(xs []string) string {
	switch len(xs) {
	case 0:
		return ""
	case 1:
		return xs[0]
	default:
		return strings.Join(xs[:len(xs)-1], ", ") + " and " + xs[len(xs)-1]
	}
}

func pluralise(one, many string, n int) string {
	if n == 1 {
		return one
	}
	return many
}
