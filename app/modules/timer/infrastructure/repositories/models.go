package timerdb

import (
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// RoundTimer is the durable half of a round countdown. The ticking half lives
// in memory and is rebuilt from these rows on startup.
type RoundTimer struct {
	bun.BaseModel        `bun:"table:round_timers,alias:rt"`
	ID                   int64                         `bun:"id,pk,autoincrement"`
	TournamentID         tournamentdomain.TournamentID `bun:"tournament_id,notnull,type:varchar(64)"`
	ChannelID            tournamentdomain.ChannelID    `bun:"channel_id,notnull,type:varchar(20)"`
	MessageID            tournamentdomain.MessageID    `bun:"message_id,notnull,type:varchar(20)"`
	End                  time.Time                     `bun:"end_at,notnull"`
	FinalMessage         string                        `bun:"final_message,notnull"`
	UpdateIntervalMillis int64                         `bun:"update_interval_millis,notnull"`
	CreatedAt            time.Time                     `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// UpdateInterval is the tick period of the timer.
func (t *RoundTimer) UpdateInterval() time.Duration {
	return time.Duration(t.UpdateIntervalMillis) * time.Millisecond
}
