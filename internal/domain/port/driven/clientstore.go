package driven

import (
	"context"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// ClientStore defines the driven port for agent client persistence.
// Get returns nil, nil when the client does not exist.
type ClientStore interface {
	Create(ctx context.Context, client model.Client) error
	Get(ctx context.Context, id string) (*model.Client, error)
	Touch(ctx context.Context, id string) error
}
