package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "timetable:job:", nil)
	assert.False(t, repo.Enabled())

	require.NoError(t, repo.Set(context.Background(), "job-1", map[string]string{"status": "QUEUED"}, time.Minute))

	var dest map[string]string
	err := repo.Get(context.Background(), "job-1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Delete(context.Background(), "job-1"))
	assert.NoError(t, repo.Close())
	assert.Equal(t, "timetable:job:job-1", repo.key("job-1"))
}
