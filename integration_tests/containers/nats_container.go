package containers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"
)

const natsImage = "nats:2.10-alpine"

// SetupNatsContainer starts a JetStream enabled NATS server and returns the
// container and its client URL. The caller terminates the container.
func SetupNatsContainer(ctx context.Context) (*nats.NATSContainer, string, error) {
	natsContainer, err := nats.Run(ctx,
		natsImage,
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Server is ready"),
				wait.ForListeningPort("4222/tcp"),
			).WithDeadline(45*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start NATS container: %w", err)
	}

	url, err := natsContainer.ConnectionString(ctx)
	if err != nil {
		if termErr := natsContainer.Terminate(ctx); termErr != nil {
			log.Printf("Failed to terminate NATS container: %v", termErr)
		}
		return nil, "", fmt.Errorf("failed to get NATS connection string: %w", err)
	}

	log.Printf("NATS container ready: %s", url)
	return natsContainer, url, nil
}
