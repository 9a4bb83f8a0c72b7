package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartReconcileScheduler checks the XP counters against the ledger every interval.
// The caller owns the returned scheduler and should Shutdown it on exit.
func StartReconcileScheduler(ledger *XPLedger, every time.Duration, repair bool, log *zap.Logger) (gocron.Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			RunReconcile(ctx, ledger, repair, log)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	sched.Start()
	return sched, nil
}

// RunReconcile runs one reconciliation pass and logs every drifting user.
func RunReconcile(ctx context.Context, ledger *XPLedger, repair bool, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}
	drifts, err := ledger.Reconcile(ctx, repair)
	if err != nil {
		log.Error("xp reconcile failed", zap.Error(err))
	}
	for _, d := range drifts {
		log.Warn("xp counter drift",
			zap.String("user_id", d.UserID),
			zap.Int64("xp", d.XP),
			zap.Int64("ledger_xp", d.LedgerXP),
			zap.Bool("repaired", repair && err == nil),
		)
	}
	return len(drifts)
}
