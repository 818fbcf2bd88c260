package storage

import (
	"context"
	"database/sql"
	"encoding/json"
)

// LotteryRepo owns the guess ledger, the award ledger and the archived results.
type LotteryRepo struct{ db *sql.DB }

func NewLotteryRepo(db *sql.DB) *LotteryRepo { return &LotteryRepo{db: db} }

func (r *LotteryRepo) GuessesFor(ctx context.Context, discordID string) ([]LotteryGuess, error) {
	return r.queryGuesses(ctx, `
SELECT discord_id, number, guessed_at
  FROM lottery_guesses
 WHERE discord_id = $1
 ORDER BY number ASC
`, discordID)
}

func (r *LotteryRepo) AllGuesses(ctx context.Context) ([]LotteryGuess, error) {
	return r.queryGuesses(ctx, `
SELECT discord_id, number, guessed_at
  FROM lottery_guesses
 ORDER BY number ASC, guessed_at ASC
`)
}

func (r *LotteryRepo) GuessersOf(ctx context.Context, number int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT discord_id
  FROM lottery_guesses
 WHERE number = $1
 ORDER BY guessed_at ASC
`, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *LotteryRepo) InsertGuess(ctx context.Context, g LotteryGuess) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO lottery_guesses (discord_id, number) VALUES ($1,$2)
`, g.DiscordID, g.Number)
	return err
}

func (r *LotteryRepo) DeleteGuess(ctx context.Context, discordID string, number int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM lottery_guesses WHERE discord_id = $1 AND number = $2
`, discordID, number)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *LotteryRepo) AwardsFor(ctx context.Context, discordID string) ([]ExtraLotteryGuess, error) {
	return r.queryAwards(ctx, `
SELECT discord_id, reason, awarded_at
  FROM extra_lottery_guesses
 WHERE discord_id = $1
`, discordID)
}

func (r *LotteryRepo) AllAwards(ctx context.Context) ([]ExtraLotteryGuess, error) {
	return r.queryAwards(ctx, `
SELECT discord_id, reason, awarded_at
  FROM extra_lottery_guesses
`)
}

func (r *LotteryRepo) InsertAward(ctx context.Context, a ExtraLotteryGuess) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO extra_lottery_guesses (discord_id, reason) VALUES ($1,$2)
`, a.DiscordID, a.Reason)
	return err
}

// FlushPeriod hard-deletes the current period's guesses and awards.
func (r *LotteryRepo) FlushPeriod(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lottery_guesses`); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM extra_lottery_guesses`)
	return err
}

func (r *LotteryRepo) ArchiveResult(ctx context.Context, res LotteryResult) error {
	blob, err := json.Marshal(res.Guesses)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO lottery_results (winning_number, guesses) VALUES ($1,$2::jsonb)
`, res.WinningNumber, blob)
	return err
}

func (r *LotteryRepo) RecentResults(ctx context.Context, limit int) ([]LotteryResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, winning_number, guesses, created_at
  FROM lottery_results
 ORDER BY created_at DESC
 LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LotteryResult
	for rows.Next() {
		var res LotteryResult
		var blob []byte
		if err := rows.Scan(&res.ID, &res.WinningNumber, &blob, &res.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &res.Guesses); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *LotteryRepo) queryGuesses(ctx context.Context, query string, args ...any) ([]LotteryGuess, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LotteryGuess
	for rows.Next() {
		var g LotteryGuess
		if err := rows.Scan(&g.DiscordID, &g.Number, &g.GuessedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *LotteryRepo) queryAwards(ctx context.Context, query string, args ...any) ([]ExtraLotteryGuess, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtraLotteryGuess
	for rows.Next() {
		var a ExtraLotteryGuess
		if err := rows.Scan(&a.DiscordID, &a.Reason, &a.AwardedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
