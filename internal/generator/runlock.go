package generator

import (
	"context"
	"time"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// runLockTTL caps how long a crashed run can hold the lock: the poll bound
// (~10 minutes) plus staging/materialization headroom.
const runLockTTL = 15 * time.Minute

// releaseScript deletes the lock only while it still holds this run's
// token. A run that outlived the TTL must not drop a successor's lease.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RunLock serializes generation runs per engine account. The activity is
// created under a fixed identifier, so two concurrent runs against one
// account would race on its creation and deletion; the lock makes the
// single-run assumption explicit instead of implicit.
type RunLock struct {
	client *redis.Client
	logger logger.Logger
}

func NewRunLock(client *redis.Client, log logger.Logger) *RunLock {
	return &RunLock{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "run-lock"}),
	}
}

func lockKey(account string) string {
	return "casegen:runlock:" + account
}

// Acquire takes the per-account lease. The returned release function is
// safe to call once, typically deferred; the TTL releases abandoned locks.
func (l *RunLock) Acquire(ctx context.Context, account string) (func(), error) {
	key := lockKey(account)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, runLockTTL).Result()
	if err != nil {
		return nil, errors.NewExternalServiceError("redis", err)
	}
	if !ok {
		return nil, errors.NewRunLockedError(account)
	}

	release := func() {
		// Best effort, the TTL is the backstop.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Int()
		if err != nil {
			l.logger.Warn("run lock release failed", map[string]interface{}{
				"account": account,
				"error":   err.Error(),
			})
			return
		}
		if deleted == 0 {
			l.logger.Warn("run lock already expired, left successor's lease alone", map[string]interface{}{
				"account": account,
			})
		}
	}

	return release, nil
}
