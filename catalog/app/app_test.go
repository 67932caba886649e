package app

import (
	"context"
	"testing"

	"github.com/Astemirdum/bookish-library/catalog/config"
	"github.com/Astemirdum/bookish-library/catalog/internal/ledger"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/Astemirdum/bookish-library/catalog/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewMemoryRepository(ledger.New(), zap.NewNop())

	require.NoError(t, seedRepository(ctx, repo))
	require.NoError(t, seedRepository(ctx, repo))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, len(ledger.DemoCatalog()), stats.Titles)
	require.Equal(t, stats.TotalCopies, stats.AvailableCopies)
}

func TestNewRepository_Memory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, closeRepo, err := newRepository(ctx, config.Config{Storage: config.StorageMemory, Seed: true}, zap.NewNop())
	require.NoError(t, err)
	defer closeRepo()

	books, err := repo.ListBooks(ctx, model.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books.Items, len(ledger.DemoCatalog()))
}

func TestNewPublisher_Disabled(t *testing.T) {
	t.Parallel()
	pub, closePublisher, err := newPublisher(config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer closePublisher()
	require.NotNil(t, pub)
}
