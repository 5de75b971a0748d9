package eventbus

import (
	"context"
	"fmt"
)

// Stream names and the subjects each one captures.
const (
	DiscordStream = "discord"
	TourneyStream = "tourney"
)

var streamSubjects = map[string][]string{
	DiscordStream: {"discord.message.>", "discord.reaction.>"},
	TourneyStream: {"tourney.>"},
}

// InitializeStreams creates every stream the tournament module publishes to
// or consumes from. The discord.api request subjects stay outside JetStream.
func InitializeStreams(ctx context.Context, bus EventBus) error {
	for _, name := range []string{DiscordStream, TourneyStream} {
		if err := bus.CreateStream(ctx, name, streamSubjects[name]...); err != nil {
			return fmt.Errorf("initialize stream %s: %w", name, err)
		}
	}
	return nil
}
