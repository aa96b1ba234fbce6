package queue

import (
	"context"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

// Producer schedules meeting jobs for background processing.
type Producer interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer receives meeting jobs and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error
}
