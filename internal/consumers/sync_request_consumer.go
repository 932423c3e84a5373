package consumers

import (
	"context"
	"encoding/json"
	"strings"

	"fincal/internal/adapters/kafka"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// Syncer runs a named sync job
type Syncer interface {
	Sync(ctx context.Context, job string, override *calendar.Window) (*calendar.RunReport, error)
}

// SyncRequest is an on-demand trigger. From and To are optional YYYY-MM-DD bounds
// and must be given together.
type SyncRequest struct {
	Job  string `json:"job"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Window parses the optional override window
func (r SyncRequest) Window() (*calendar.Window, error) {
	if r.From == "" && r.To == "" {
		return nil, nil
	}
	if r.From == "" || r.To == "" {
		return nil, errors.NewValidationError("window", "from and to must be given together", r.From+".."+r.To)
	}
	w, err := calendar.ParseWindow(r.From, r.To)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SyncRequestConsumer runs sync jobs requested over Kafka
type SyncRequestConsumer struct {
	consumer *kafka.Consumer
	syncer   Syncer
	log      *logger.Logger
}

// NewSyncRequestConsumer creates a new sync request consumer
func NewSyncRequestConsumer(consumer *kafka.Consumer, syncer Syncer, log *logger.Logger) *SyncRequestConsumer {
	return &SyncRequestConsumer{
		consumer: consumer,
		syncer:   syncer,
		log:      log.With("component", "sync_request_consumer"),
	}
}

// Start consumes requests until ctx is cancelled. Requests are handled one at a time.
func (c *SyncRequestConsumer) Start(ctx context.Context) error {
	c.log.Infow("Subscribed to sync requests", "topic", kafka.TopicSyncRequests)

	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.log.Errorw("Failed to close sync request consumer", "error", err)
		} else {
			c.log.Info("✓ Sync request consumer closed")
		}
	}()

	for {
		msg, err := c.consumer.ReadMessageWithShutdownCheck(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Sync request consumer stopped (context cancelled)")
				return nil
			}
			c.log.Errorw("Failed to read message", "error", err)
			continue
		}

		if err := c.handle(ctx, msg.Value); err != nil {
			c.log.Errorw("Failed to process sync request",
				"error", err,
				"offset", msg.Offset,
			)
		}
	}
}

// handle decodes and runs one request. Locked jobs are not an error.
func (c *SyncRequestConsumer) handle(ctx context.Context, data []byte) error {
	var req SyncRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "decode sync request: "+err.Error())
	}

	req.Job = strings.TrimSpace(req.Job)
	if req.Job == "" {
		return errors.NewValidationError("job", "required", req.Job)
	}

	window, err := req.Window()
	if err != nil {
		return err
	}

	report, err := c.syncer.Sync(ctx, req.Job, window)
	if errors.Is(err, errors.ErrLocked) {
		c.log.Infow("Sync request skipped, job already running", "job", req.Job)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "sync %s", req.Job)
	}

	c.log.Infow("Sync request completed",
		"job", req.Job,
		"run_id", report.RunID,
		"success", report.Success,
		"inserted", report.Inserted,
	)
	return nil
}
