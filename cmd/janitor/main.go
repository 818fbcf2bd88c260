// Scheduled cleanup of old operational rows: import logs past 90 days and
// archived lottery results beyond the last 12 periods.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _ = pool.Exec(cctx, `DELETE FROM import_logs WHERE start_time < now() - INTERVAL '90 days';`)
	_, _ = pool.Exec(cctx, `
DELETE FROM lottery_results
WHERE id NOT IN (
  SELECT id FROM lottery_results ORDER BY created_at DESC LIMIT 12
);`)

	return "ok", nil
}

func main() { lambda.Start(handler) }
