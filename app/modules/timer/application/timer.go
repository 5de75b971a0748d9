package timerservice

import (
	"context"
	"errors"
	"sync"

	timerdb "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

// Timer is one ticking countdown message. Once aborted it is done for good.
type Timer struct {
	svc    *TimerService
	record timerdb.RoundTimer

	mu     sync.Mutex
	active bool
	stop   chan struct{}
}

// Record returns a copy of the durable record.
func (t *Timer) Record() timerdb.RoundTimer {
	return t.record
}

// IsActive reports whether the timer still ticks.
func (t *Timer) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Timer) start(ctx context.Context) {
	ticker := t.svc.clock.NewTicker(t.record.UpdateInterval())
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C():
				t.tick(ctx)
			}
		}
	}()
}

// tick sends the final message once the end is reached, otherwise refreshes the
// countdown. A missing message is logged and ticking continues.
func (t *Timer) tick(ctx context.Context) {
	if !t.IsActive() {
		return
	}
	remaining := t.record.End.Sub(t.svc.clock.Now())
	if remaining <= 0 {
		t.expire(ctx)
		return
	}

	err := t.svc.messenger.EditMessage(ctx, t.record.ChannelID, t.record.MessageID, countdownText(remaining))
	if err == nil {
		return
	}
	if errors.Is(err, tournamentdomain.ErrMessageNotFound) {
		t.svc.logger.WarnContext(ctx, "Countdown message was removed",
			attr.String("channel_id", string(t.record.ChannelID)),
			attr.String("message_id", string(t.record.MessageID)),
		)
		return
	}
	t.svc.logger.WarnContext(ctx, "Failed to update countdown",
		attr.String("channel_id", string(t.record.ChannelID)),
		attr.Error(err),
	)
}

// expire posts the final message and removes the timer. The state lock is held
// across the send so a concurrent Abort either wins before it or returns after it.
func (t *Timer) expire(ctx context.Context) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	close(t.stop)
	if _, err := t.svc.messenger.SendMessage(ctx, t.record.ChannelID, t.record.FinalMessage); err != nil {
		t.svc.logger.ErrorContext(ctx, "Failed to send final timer message",
			attr.TournamentID(string(t.record.TournamentID)),
			attr.String("channel_id", string(t.record.ChannelID)),
			attr.Error(err),
		)
	}
	t.mu.Unlock()

	t.svc.forget(t)
	if err := t.svc.repo.DeleteTimer(ctx, nil, t.record.ID); err != nil {
		t.svc.logger.ErrorContext(ctx, "Failed to remove expired timer",
			attr.Int64("timer_id", t.record.ID),
			attr.Error(err),
		)
	}
}

// Abort stops ticking and deletes the record. Calling it again is a no-op.
func (t *Timer) Abort(ctx context.Context) error {
	if !t.halt() {
		return nil
	}
	t.svc.forget(t)
	return t.svc.repo.DeleteTimer(ctx, nil, t.record.ID)
}

// halt stops the ticker goroutine and reports whether this call did it.
func (t *Timer) halt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	close(t.stop)
	return true
}
