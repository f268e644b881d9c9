package sync

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ksef-sync/internal/ksef"
	"github.com/rezonia/ksef-sync/internal/model"
)

func TestDefaultClientFactory(t *testing.T) {
	entity := &model.Entity{KsefEnv: model.EnvTest, KsefToken: "stored-token"}

	t.Run("configured timeout reaches the client", func(t *testing.T) {
		svc := NewService(nil, nil, zerolog.Nop()).WithTimeout(5 * time.Second)
		client, ok := svc.newClient(entity).(*ksef.Client)
		require.True(t, ok)
		assert.Equal(t, 5*time.Second, client.Timeout())
		assert.Equal(t, "stored-token", client.Token())
	})

	t.Run("zero timeout keeps the client default", func(t *testing.T) {
		svc := NewService(nil, nil, zerolog.Nop())
		client, ok := svc.newClient(entity).(*ksef.Client)
		require.True(t, ok)
		assert.Equal(t, ksef.DefaultTimeout, client.Timeout())
	})
}
