package pairing

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// both implementations must satisfy the same contract
func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"redis":  NewRedisRepository(client, "test:pairing:"),
	}
}

func TestRepository_ServerUpsertAndDelete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, repo.UpsertServer(ctx, &PairedServer{
				Name: "Alpha", IP: "192.0.2.1", Port: 28015, PlayerID: "p1", PlayerToken: "t1", PairedAt: 1,
			}))
			require.NoError(t, repo.UpsertServer(ctx, &PairedServer{
				Name: "Alpha v2", IP: "192.0.2.1", Port: 28015, PlayerID: "p1", PlayerToken: "t2", PairedAt: 2,
			}))
			require.NoError(t, repo.UpsertServer(ctx, &PairedServer{
				Name: "Beta", IP: "192.0.2.2", Port: 28015, PairedAt: 3,
			}))

			servers, err := repo.Servers(ctx)
			require.NoError(t, err)
			require.Len(t, servers, 2)
			require.Equal(t, "Alpha v2", servers["192.0.2.1:28015"].Name)
			require.Equal(t, "t2", servers["192.0.2.1:28015"].PlayerToken)

			require.NoError(t, repo.DeleteServer(ctx, "192.0.2.1:28015"))
			servers, err = repo.Servers(ctx)
			require.NoError(t, err)
			require.Len(t, servers, 1)

			require.ErrorIs(t, repo.DeleteServer(ctx, "192.0.2.1:28015"), ErrNotFound)
			// failed delete must not mutate the store
			servers, err = repo.Servers(ctx)
			require.NoError(t, err)
			require.Len(t, servers, 1)
		})
	}
}

func TestRepository_EntityUpsertAndDelete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, repo.UpsertEntity(ctx, &PairedEntity{
				EntityID: 42, EntityType: "switch", EntityName: "Device #42", ServerID: "192.0.2.1:28015", PairedAt: 1,
			}))
			require.NoError(t, repo.UpsertEntity(ctx, &PairedEntity{
				EntityID: 42, EntityType: "alarm", EntityName: "Front Door", ServerID: "192.0.2.1:28015", PairedAt: 2,
			}))

			entities, err := repo.Entities(ctx)
			require.NoError(t, err)
			require.Len(t, entities, 1, "same entity id must overwrite")
			require.Equal(t, "alarm", entities["42"].EntityType)

			require.ErrorIs(t, repo.DeleteEntity(ctx, "99"), ErrNotFound)
			require.NoError(t, repo.DeleteEntity(ctx, "42"))
			entities, err = repo.Entities(ctx)
			require.NoError(t, err)
			require.Empty(t, entities)
		})
	}
}

func TestRepository_DeleteServerDoesNotCascade(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, repo.UpsertServer(ctx, &PairedServer{IP: "192.0.2.1", Port: 28015}))
			require.NoError(t, repo.UpsertEntity(ctx, &PairedEntity{EntityID: 7, ServerID: "192.0.2.1:28015"}))

			require.NoError(t, repo.DeleteServer(ctx, "192.0.2.1:28015"))

			entities, err := repo.Entities(ctx)
			require.NoError(t, err)
			require.Len(t, entities, 1, "entities reference servers weakly and must survive server deletion")
		})
	}
}
