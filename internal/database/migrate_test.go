//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/database"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/repository"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "glimpse_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/glimpse_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	dsn := startPostgres(t)

	db, err := database.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	migrator, err := database.NewMigrator(db, "glimpse_test", logger)
	require.NoError(t, err)
	defer func() { _ = migrator.Close() }()

	t.Run("Up creates gallery table", func(t *testing.T) {
		require.NoError(t, migrator.Up())
		require.NoError(t, migrator.Up(), "second Up is a no-op")

		columns := getTableColumns(t, db, "gallery_entries")
		for _, col := range []string{"id", "seq", "label", "features", "embedding", "image_path",
			"bbox_left", "bbox_top", "bbox_right", "bbox_bottom", "enrolled_at"} {
			assert.Contains(t, columns, col)
		}
	})

	t.Run("Version is 1 and clean", func(t *testing.T) {
		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(1), version)
	})

	t.Run("gallery repository round trip", func(t *testing.T) {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
		require.NoError(t, err)
		defer pool.Close()

		repo := repository.NewGalleryRepository(pool)

		alice := &domain.GalleryEntry{Label: "Alice", Embedding: []float32{1, 0, 0}, ImagePath: "a.jpg",
			Box: domain.BoundingBox{Left: 1, Top: 2, Right: 30, Bottom: 40}}
		bob := &domain.GalleryEntry{Label: "Bob", Embedding: []float32{0, 1, 0}}
		require.NoError(t, repo.Append(ctx, alice))
		require.NoError(t, repo.Append(ctx, bob))

		entries, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "Alice", entries[0].Label, "list keeps enrollment order")
		assert.Equal(t, alice.Embedding, entries[0].Embedding)
		assert.Equal(t, alice.Box, entries[0].Box)

		conflict, err := repo.FindConflictingLabel(ctx, "Carol", []float32{0.99, 0.1, 0}, 0.9)
		require.NoError(t, err)
		require.NotNil(t, conflict)
		assert.Equal(t, "Alice", conflict.Label)

		require.NoError(t, repo.DeleteByID(ctx, alice.ID))
		entries, err = repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("Rollback rejects non-positive steps", func(t *testing.T) {
		assert.Error(t, migrator.Rollback(0))
	})

	t.Run("Rollback drops gallery table", func(t *testing.T) {
		require.NoError(t, migrator.Rollback(1))
		assert.Empty(t, getTableColumns(t, db, "gallery_entries"))
	})

	t.Run("MigrateUp restores the schema", func(t *testing.T) {
		require.NoError(t, database.MigrateUp(ctx, dsn, logger))
		assert.NotEmpty(t, getTableColumns(t, db, "gallery_entries"))
	})
}

func getTableColumns(t *testing.T, db *sql.DB, tableName string) []string {
	t.Helper()

	rows, err := db.Query(`
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var col string
		require.NoError(t, rows.Scan(&col))
		columns = append(columns, col)
	}

	return columns
}
