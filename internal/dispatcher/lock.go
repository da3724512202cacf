package dispatcher

import (
	"fmt"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/redis"
)

// RunLock keeps two dispatchers off the same campaign. The queue is
// at-least-once, so duplicate deliveries are normal; whoever wins the
// SetNX runs, the loser acks and walks away. The TTL frees the lock if
// the holder dies mid-run.
type RunLock struct {
	adapter redis.RedisAdapter
	ttl     time.Duration
}

func NewRunLock(adapter redis.RedisAdapter, ttl time.Duration) *RunLock {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &RunLock{adapter: adapter, ttl: ttl}
}

func (l *RunLock) key(campaignID int64) string {
	return fmt.Sprintf("campaign:run-lock:%d", campaignID)
}

func (l *RunLock) Acquire(campaignID int64) (bool, error) {
	return l.adapter.SetNX(l.key(campaignID), []byte("1"), l.ttl)
}

func (l *RunLock) Release(campaignID int64) error {
	return l.adapter.Del(l.key(campaignID))
}
