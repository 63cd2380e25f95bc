package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrInvalidSchedule = errors.New("invalid cleanup schedule")

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type OutboxPurger interface {
	DeleteProcessedEvents(ctx context.Context, before time.Time) (int64, error)
}

// OutboxCleaner deletes published outbox events once they are older than the retention.
type OutboxCleaner struct {
	repo      OutboxPurger
	retention time.Duration
	timeout   time.Duration
	sched     *cron.Cron
	now       func() time.Time
	log       *zap.Logger
}

func NewOutboxCleaner(repo OutboxPurger, schedule string, retention time.Duration, log *zap.Logger) (*OutboxCleaner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	c := &OutboxCleaner{
		repo:      repo,
		retention: retention,
		timeout:   time.Minute,
		sched:     cron.New(cron.WithParser(cronParser)),
		now:       time.Now,
		log:       log,
	}
	if _, err := c.sched.AddFunc(schedule, func() { c.purge() }); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, schedule, err)
	}
	return c, nil
}

func (c *OutboxCleaner) Start() {
	c.sched.Start()
}

// Stop waits for a running purge to finish.
func (c *OutboxCleaner) Stop() {
	<-c.sched.Stop().Done()
}

func (c *OutboxCleaner) purge() int64 {
	defer func() {
		if err := recover(); err != nil {
			c.log.Error("outbox cleanup panicked", zap.Any("panic", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	before := c.now().Add(-c.retention)
	n, err := c.repo.DeleteProcessedEvents(ctx, before)
	if err != nil {
		c.log.Error("failed to purge outbox events", zap.Time("before", before), zap.Error(err))
		return 0
	}
	if n > 0 {
		c.log.Info("purged processed outbox events", zap.Int64("count", n), zap.Time("before", before))
	}
	return n
}
