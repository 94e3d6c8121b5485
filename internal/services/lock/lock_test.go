package lock

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"bnpl-financing-engine/internal/models"
)

func TestDisbursementKey(t *testing.T) {
	assert.Equal(t, "disbursement:b1", DisbursementKey("b1"))
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() || os.Getenv("LOAN_DB_INTEGRATION") == "" {
		t.Skip("set LOAN_DB_INTEGRATION to run container-backed tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisLocker_Exclusive(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	rdb, err := Connect(ctx, addr, "")
	require.NoError(t, err)
	defer rdb.Close()

	locker := NewRedisLocker(rdb, 5*time.Second)
	key := DisbursementKey("b1")

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, models.ErrLockNotObtained)

	release()

	release2, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	release2()
}
