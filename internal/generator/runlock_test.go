package generator

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
)

func TestRunLock_AcquireAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("casegen:runlock:acct-1", `.+`, runLockTTL).SetVal(true)
	mock.Regexp().
		ExpectEval(regexp.QuoteMeta(releaseScript), []string{"casegen:runlock:acct-1"}, `.+`).
		SetVal(int64(1))

	lock := NewRunLock(client, logger.NewTestLogger(t))
	release, err := lock.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_ReleaseSparesSuccessorLease(t *testing.T) {
	// After the TTL evicts the lease and another run re-acquires it, the
	// original holder's release must not delete the new token.
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("casegen:runlock:acct-1", `.+`, runLockTTL).SetVal(true)
	mock.Regexp().
		ExpectEval(regexp.QuoteMeta(releaseScript), []string{"casegen:runlock:acct-1"}, `.+`).
		SetVal(int64(0))

	lock := NewRunLock(client, logger.NewTestLogger(t))
	release, err := lock.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_Held(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("casegen:runlock:acct-1", `.+`, runLockTTL).SetVal(false)

	lock := NewRunLock(client, logger.NewTestLogger(t))
	_, err := lock.Acquire(context.Background(), "acct-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunLocked))
}

func TestRunLock_AccountsAreIndependent(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("casegen:runlock:acct-1", `.+`, runLockTTL).SetVal(false)
	mock.Regexp().ExpectSetNX("casegen:runlock:acct-2", `.+`, runLockTTL).SetVal(true)

	lock := NewRunLock(client, logger.NewTestLogger(t))

	_, err := lock.Acquire(context.Background(), "acct-1")
	require.Error(t, err)

	release, err := lock.Acquire(context.Background(), "acct-2")
	require.NoError(t, err)
	_ = release

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_TTLBoundsStaleLocks(t *testing.T) {
	// A crashed run must not wedge the account forever.
	assert.Greater(t, runLockTTL, 10*time.Minute, "TTL must outlast the poll bound")
	assert.LessOrEqual(t, runLockTTL, time.Hour)
}
