package publisher

import (
	"context"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

type AlertPublisher interface {
	PublishSOS(ctx context.Context, notice *domain.SOSNotice) error
}
