package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Keburichi/excelbot/internal/infra/storage"
)

const testChannel = "chan-1"

func newLotteryFixture() (*LotteryService, *fakeMemberStore, *fakeLotteryStore, *fakeNotifier) {
	members := newFakeMemberStore()
	ledger := &fakeLotteryStore{}
	notify := &fakeNotifier{}
	svc := NewLotteryService(members, ledger, notify, testChannel)
	return svc, members, ledger, notify
}

func TestGuessRegistersAndAnnounces(t *testing.T) {
	svc, members, ledger, notify := newLotteryFixture()
	members.put(fcMember("u1"))

	out, err := svc.Guess(context.Background(), "u1", 42)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)
	require.Equal(t, []int{42}, out.Guesses)

	got, _ := ledger.GuessesFor(context.Background(), "u1")
	require.Len(t, got, 1)
	require.Equal(t, 42, got[0].Number)

	posts := notify.all()
	require.Len(t, posts, 1)
	require.Contains(t, posts[0], "<@u1>")
	require.Contains(t, posts[0], "Current guesses: 42")

	// with an award the second guess announces the full updated list
	require.NoError(t, ledger.InsertAward(context.Background(), storage.ExtraLotteryGuess{DiscordID: "u1", Reason: "raffle"}))
	out, err = svc.Guess(context.Background(), "u1", 23)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)

	posts = notify.all()
	require.Len(t, posts, 2)
	require.Contains(t, posts[1], "Current guesses: 23 and 42")
}

func TestGuessRejectsNonMembers(t *testing.T) {
	svc, members, ledger, _ := newLotteryFixture()
	members.put(outsider("guest"))

	for _, id := range []string{"guest", "nobody"} {
		out, err := svc.Guess(context.Background(), id, 42)
		require.NoError(t, err)
		require.Equal(t, GuessNotEligible, out.Kind)
	}
	all, _ := ledger.AllGuesses(context.Background())
	require.Empty(t, all)
}

func TestGuessRejectsOutOfRange(t *testing.T) {
	svc, members, _, _ := newLotteryFixture()
	members.put(fcMember("u1"))

	for _, n := range []int{0, -3, 100, 1000} {
		out, err := svc.Guess(context.Background(), "u1", n)
		require.NoError(t, err)
		require.Equal(t, GuessOutOfRange, out.Kind)
	}
}

func TestGuessRejectsDuplicateNumber(t *testing.T) {
	svc, members, _, _ := newLotteryFixture()
	members.put(fcMember("u1"))

	_, err := svc.Guess(context.Background(), "u1", 7)
	require.NoError(t, err)
	out, err := svc.Guess(context.Background(), "u1", 7)
	require.NoError(t, err)
	require.Equal(t, GuessAlreadyGuessed, out.Kind)
}

func TestGuessQuotaGrowsWithAwards(t *testing.T) {
	svc, members, ledger, _ := newLotteryFixture()
	members.put(fcMember("u1"))

	out, err := svc.Guess(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)

	out, err = svc.Guess(context.Background(), "u1", 11)
	require.NoError(t, err)
	require.Equal(t, GuessQuotaExhausted, out.Kind)
	require.Equal(t, []int{10}, out.Guesses)

	require.NoError(t, ledger.InsertAward(context.Background(), storage.ExtraLotteryGuess{DiscordID: "u1", Reason: "event win"}))

	out, err = svc.Guess(context.Background(), "u1", 11)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)
	require.Equal(t, []int{10, 11}, out.Guesses)

	out, err = svc.Guess(context.Background(), "u1", 12)
	require.NoError(t, err)
	require.Equal(t, GuessQuotaExhausted, out.Kind)
}

func TestChangeGuessSwapsWithoutSpendingQuota(t *testing.T) {
	svc, members, ledger, notify := newLotteryFixture()
	members.put(fcMember("u1"))

	_, err := svc.Guess(context.Background(), "u1", 10)
	require.NoError(t, err)

	out, err := svc.ChangeGuess(context.Background(), "u1", 10, 20)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)
	require.Equal(t, []int{20}, out.Guesses)

	got, _ := ledger.GuessesFor(context.Background(), "u1")
	require.Len(t, got, 1)
	require.Equal(t, 20, got[0].Number)

	posts := notify.all()
	require.Len(t, posts, 2)
	require.Contains(t, posts[1], "from 10 to 20")
	require.Contains(t, posts[1], "Current guesses: 20")
}

func TestChangeGuessRejectsNumbersNotHeld(t *testing.T) {
	svc, members, _, _ := newLotteryFixture()
	members.put(fcMember("u1"))

	_, err := svc.Guess(context.Background(), "u1", 10)
	require.NoError(t, err)

	out, err := svc.ChangeGuess(context.Background(), "u1", 55, 20)
	require.NoError(t, err)
	require.Equal(t, GuessNotCurrentlyGuessed, out.Kind)
	require.Equal(t, 55, out.Number)

	out, err = svc.ChangeGuess(context.Background(), "u1", 10, 10)
	require.NoError(t, err)
	require.Equal(t, GuessAlreadyGuessed, out.Kind)
}

func TestRandomGuessUnusedPoolAvoidsTakenNumbers(t *testing.T) {
	svc, members, ledger, _ := newLotteryFixture()
	members.put(fcMember("u1"))
	for n := 1; n <= 98; n++ {
		require.NoError(t, ledger.InsertGuess(context.Background(), storage.LotteryGuess{DiscordID: "other", Number: n}))
	}

	out, err := svc.RandomGuess(context.Background(), "u1", PoolUnusedOnly)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)
	require.Equal(t, 99, out.Number)
}

func TestRandomGuessUsedPoolPicksTakenNumber(t *testing.T) {
	svc, members, ledger, _ := newLotteryFixture()
	members.put(fcMember("u1"))
	require.NoError(t, ledger.InsertGuess(context.Background(), storage.LotteryGuess{DiscordID: "other", Number: 5}))

	out, err := svc.RandomGuess(context.Background(), "u1", PoolUsedOnly)
	require.NoError(t, err)
	require.Equal(t, GuessSuccess, out.Kind)
	require.Equal(t, 5, out.Number)
}

func TestRandomGuessEmptyPool(t *testing.T) {
	svc, members, _, _ := newLotteryFixture()
	members.put(fcMember("u1"))

	out, err := svc.RandomGuess(context.Background(), "u1", PoolUsedOnly)
	require.NoError(t, err)
	require.Equal(t, GuessOutOfRange, out.Kind)
}

func TestRandomGuessHonoursDeadline(t *testing.T) {
	svc, members, ledger, _ := newLotteryFixture()
	members.put(fcMember("u1"))
	// Caller already holds the only used number, so a used-only draw can
	// never terminate on its own.
	require.NoError(t, ledger.InsertGuess(context.Background(), storage.LotteryGuess{DiscordID: "u1", Number: 5}))
	require.NoError(t, ledger.InsertAward(context.Background(), storage.ExtraLotteryGuess{DiscordID: "u1", Reason: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	out, err := svc.RandomGuess(ctx, "u1", PoolUsedOnly)
	require.NoError(t, err)
	require.Equal(t, GuessTimedOut, out.Kind)
}

func TestViewReportsGuessesAndQuota(t *testing.T) {
	svc, members, ledger, _ := newLotteryFixture()
	members.put(fcMember("u1"))
	members.put(outsider("guest"))

	v, err := svc.View(context.Background(), "guest")
	require.NoError(t, err)
	require.False(t, v.Eligible)

	require.NoError(t, ledger.InsertAward(context.Background(), storage.ExtraLotteryGuess{DiscordID: "u1", Reason: "x"}))
	_, err = svc.Guess(context.Background(), "u1", 30)
	require.NoError(t, err)

	v, err = svc.View(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, v.Eligible)
	require.Equal(t, []int{30}, v.Guesses)
	require.Equal(t, 2, v.Quota)
}

func TestRunLotteryRequiresAdmin(t *testing.T) {
	svc, members, ledger, notify := newLotteryFixture()
	members.put(fcMember("u1"))
	require.NoError(t, ledger.InsertGuess(context.Background(), storage.LotteryGuess{DiscordID: "u1", Number: 7}))

	out, err := svc.RunLottery(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, out.Allowed)

	all, _ := ledger.AllGuesses(context.Background())
	require.Len(t, all, 1)
	require.Empty(t, notify.all())
}

func TestRunLotteryArchivesAnnouncesAndResets(t *testing.T) {
	svc, members, ledger, notify := newLotteryFixture()
	members.put(fcAdmin("boss"))
	members.put(fcMember("u1"))
	require.NoError(t, ledger.InsertGuess(context.Background(), storage.LotteryGuess{DiscordID: "u1", Number: 7}))
	require.NoError(t, ledger.InsertGuess(context.Background(), storage.LotteryGuess{DiscordID: "u1", Number: 40}))
	require.NoError(t, ledger.InsertAward(context.Background(), storage.ExtraLotteryGuess{DiscordID: "u1", Reason: "x"}))

	out, err := svc.RunLottery(context.Background(), "boss")
	require.NoError(t, err)
	require.True(t, out.Allowed)
	require.GreaterOrEqual(t, out.WinningNumber, 0)
	require.LessOrEqual(t, out.WinningNumber, 99)
	require.Equal(t, []int{7, 40}, out.Roster["u1"])

	// winners are exactly the holders of the drawn number
	for _, w := range out.Winners {
		require.Contains(t, out.Roster[w], out.WinningNumber)
	}

	results, _ := ledger.RecentResults(context.Background(), 10)
	require.Len(t, results, 1)
	require.Equal(t, out.WinningNumber, results[0].WinningNumber)
	require.Len(t, results[0].Guesses, 2)

	all, _ := ledger.AllGuesses(context.Background())
	require.Empty(t, all)
	awards, _ := ledger.AllAwards(context.Background())
	require.Empty(t, awards)

	posts := notify.all()
	require.Len(t, posts, 1)
	require.Contains(t, posts[0], "The lottery has been drawn!")
	require.Contains(t, posts[0], "<@u1>: 7 and 40")
}

func TestRemindGroupsByRemainingAndTargetsRecentParticipants(t *testing.T) {
	svc, members, ledger, notify := newLotteryFixture()
	ctx := context.Background()

	members.put(fcAdmin("boss"))
	members.put(fcMember("a")) // no guesses, no awards: 1 remaining
	members.put(fcMember("b")) // one award, no guesses: 2 remaining
	members.put(fcMember("c")) // one award, one guess: 1 remaining
	members.put(fcMember("d")) // no awards, one guess: done
	members.put(outsider("x")) // never counted

	require.NoError(t, ledger.InsertAward(ctx, storage.ExtraLotteryGuess{DiscordID: "b", Reason: "r"}))
	require.NoError(t, ledger.InsertAward(ctx, storage.ExtraLotteryGuess{DiscordID: "c", Reason: "r"}))
	require.NoError(t, ledger.InsertGuess(ctx, storage.LotteryGuess{DiscordID: "c", Number: 8}))
	require.NoError(t, ledger.InsertGuess(ctx, storage.LotteryGuess{DiscordID: "d", Number: 9}))

	// only a and b took part in a recent draw
	require.NoError(t, ledger.ArchiveResult(ctx, storage.LotteryResult{
		WinningNumber: 3,
		Guesses: []storage.LotteryGuess{
			{DiscordID: "a", Number: 1},
			{DiscordID: "b", Number: 2},
		},
	}))

	out, err := svc.Remind(ctx, "boss")
	require.NoError(t, err)
	require.True(t, out.Allowed)

	require.Equal(t, []RemindGroup{
		{Remaining: 1, Members: []string{"a", "c"}},
		{Remaining: 2, Members: []string{"b"}},
	}, out.Groups)
	require.Equal(t, []RemindGroup{
		{Remaining: 1, Members: []string{"a"}},
		{Remaining: 2, Members: []string{"b"}},
	}, out.Targeted)

	posts := notify.all()
	require.Len(t, posts, 1)
	require.Contains(t, posts[0], "1 guess remaining: <@a>")
	require.Contains(t, posts[0], "2 guesses remaining: <@b>")
	require.NotContains(t, posts[0], "<@c>")
	require.NotContains(t, posts[0], "<@d>")
}

func TestRemindRequiresAdmin(t *testing.T) {
	svc, members, _, notify := newLotteryFixture()
	members.put(fcMember("u1"))

	out, err := svc.Remind(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, out.Allowed)
	require.Empty(t, notify.all())
}

func TestAwardFlowValidatesThenGrants(t *testing.T) {
	svc, members, ledger, notify := newLotteryFixture()
	ctx := context.Background()
	members.put(fcAdmin("boss"))
	members.put(fcMember("u1"))
	members.put(fcMember("u2"))
	members.put(outsider("guest"))

	out, err := svc.TryAwardUsers(ctx, "u1", "event", []string{"u2"})
	require.NoError(t, err)
	require.Equal(t, AwardNotAllowed, out.Kind)

	out, err = svc.TryAwardUsers(ctx, "boss", "event", nil)
	require.NoError(t, err)
	require.Equal(t, AwardNoTargets, out.Kind)

	out, err = svc.TryAwardUsers(ctx, "boss", "event", []string{"guest"})
	require.NoError(t, err)
	require.Equal(t, AwardNotEligible, out.Kind)
	require.Equal(t, []string{"guest"}, out.Rejected)

	out, err = svc.TryAwardUsers(ctx, "boss", "trivia night", []string{"u1", "u2", "guest"})
	require.NoError(t, err)
	require.Equal(t, AwardSuccess, out.Kind)
	require.Equal(t, []string{"u1", "u2"}, out.IDs)
	require.Equal(t, []string{"guest"}, out.Rejected)

	// nothing persisted until the grant is performed
	awards, _ := ledger.AllAwards(ctx)
	require.Empty(t, awards)

	require.NoError(t, svc.AwardUsers(ctx, out))
	awards, _ = ledger.AllAwards(ctx)
	require.Len(t, awards, 2)

	posts := notify.all()
	require.Len(t, posts, 1)
	require.Contains(t, posts[0], "<@u1> and <@u2>")
	require.Contains(t, posts[0], "trivia night")

	err = svc.AwardUsers(ctx, AwardOutcome{Kind: AwardNotAllowed})
	require.Error(t, err)
}

func TestPrettyJoin(t *testing.T) {
	require.Equal(t, "", prettyJoin(nil))
	require.Equal(t, "a", prettyJoin([]string{"a"}))
	require.Equal(t, "a and b", prettyJoin([]string{"a", "b"}))
	require.Equal(t, "a, b and c", prettyJoin([]string{"a", "b", "c"}))
}
