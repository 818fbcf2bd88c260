// Package worker drives the periodic background sync: roster mirror, fight
// catalog refresh and member activity waves on one explicit schedule.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Keburichi/excelbot/internal/app/service"
)

const tickInterval = 5 * time.Minute

type Worker struct {
	members *service.MemberService
	syncer  *service.SyncService
	sched   gocron.Scheduler
}

func New(members *service.MemberService, syncer *service.SyncService) (*Worker, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Worker{members: members, syncer: syncer, sched: sched}, nil
}

// Start schedules the sync tick and runs until ctx is cancelled. Each stage
// failure is logged and the remaining stages still run; the next tick starts
// from a clean slate.
func (w *Worker) Start(ctx context.Context) error {
	_, err := w.sched.NewJob(
		gocron.DurationJob(tickInterval),
		gocron.NewTask(func() { w.tick(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	w.sched.Start()
	return nil
}

func (w *Worker) Stop() error {
	return w.sched.Shutdown()
}

func (w *Worker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if res, err := w.members.ImportDirectory(ctx); err != nil {
		log.Printf("worker: directory sync failed: %v", err)
	} else {
		log.Printf("worker: directory synced members=%d roles=%d removed=%d",
			res.MembersUpserted, res.RolesUpserted, res.MembersRemoved)
	}

	if res, err := w.syncer.ImportFights(ctx); err != nil {
		log.Printf("worker: fight import failed: %v", err)
	} else if !res.Skipped {
		log.Printf("worker: fight catalog refreshed processed=%d added=%d", res.Processed, res.Created)
	}

	if res, err := w.syncer.SyncMemberActivity(ctx); err != nil {
		log.Printf("worker: activity sync failed: %v", err)
	} else {
		log.Printf("worker: activity wave members=%d clears=%d api_requests=%d failed=%d",
			res.MembersSynced, res.ClearsAdded, res.APIRequests, len(res.Failed))
	}
}
