package service

// Closed outcome sets for lottery operations. Persistence failures travel on
// the error return; outcomes only describe decisions the engine made.

type GuessKind int

const (
	GuessSuccess GuessKind = iota
	GuessOutOfRange
	GuessNotEligible
	GuessAlreadyGuessed
	GuessNotCurrentlyGuessed
	GuessQuotaExhausted
	GuessTimedOut
)

// GuessOutcome reports what happened to a guess attempt. Number is the guess
// the outcome is about; Guesses is the caller's full set after the attempt,
// sorted ascending, populated on success and quota exhaustion.
type GuessOutcome struct {
	Kind    GuessKind
	Number  int
	Guesses []int
}

// GuessPool restricts which numbers a random draw may land on.
type GuessPool int

const (
	PoolAny GuessPool = iota
	PoolUnusedOnly
	PoolUsedOnly
)

// ViewResult is the caller's own lottery position.
type ViewResult struct {
	Eligible bool
	Guesses  []int
	Quota    int
}

// RunOutcome reports a completed draw. Winners holds discord ids, possibly
// empty; Roster is the archived guess snapshot keyed by discord id.
type RunOutcome struct {
	Allowed       bool
	WinningNumber int
	Winners       []string
	Roster        map[string][]int
}

// RemindGroup is one reminder bucket: everyone with the same number of
// guesses still open.
type RemindGroup struct {
	Remaining int
	Members   []string
}

type RemindOutcome struct {
	Allowed bool
	// Groups is sorted by Remaining ascending. Targeted carries only the
	// members who took part in a recent draw and is what gets announced.
	Groups   []RemindGroup
	Targeted []RemindGroup
}

type AwardKind int

const (
	AwardSuccess AwardKind = iota
	AwardNotAllowed
	AwardNoTargets
	AwardNotEligible
)

// AwardOutcome is produced by TryAwardUsers and consumed by AwardUsers, so
// validation and mutation stay separate steps.
type AwardOutcome struct {
	Kind     AwardKind
	Reason   string
	IDs      []string
	Rejected []string
}
