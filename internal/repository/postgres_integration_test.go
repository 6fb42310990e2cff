//go:build integration
// +build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = testcontainers.TerminateContainer(postgresContainer)
	}

	os.Exit(code)
}

func setupPostgres(t *testing.T) *gorm.DB {
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("hrhub_test"),
			postgres.WithUsername("hrhub"),
			postgres.WithPassword("hrhub"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(gormpostgres.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateAll(db))

	require.NoError(t, db.Exec("TRUNCATE TABLE documents, approval_lines, document_attachments, document_references, document_histories RESTART IDENTITY CASCADE").Error)
	return db
}

func TestPostgresVersionedTransitions(t *testing.T) {
	repo := NewDocumentRepository(setupPostgres(t))

	doc := newDocument(1, "pg-1", 10, 20)
	doc.Detail = []byte(`{"amount":1}`)
	require.NoError(t, repo.Create(doc))

	stale, err := repo.FindDetail(doc.ID)
	require.NoError(t, err)

	err = repo.Transaction(func(tx *DocumentRepository) error {
		current, err := tx.FindDetail(doc.ID)
		if err != nil {
			return err
		}
		if err := tx.DecideLine(current.Lines[0].ID, model.ApprovalLineStatusApproved, "", time.Now()); err != nil {
			return err
		}
		return tx.UpdateVersioned(current, map[string]interface{}{"current_approver_id": uint(20)})
	})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.UpdateVersioned(stale, map[string]interface{}{"title": "late"}), ErrVersionConflict)
}

func TestPostgresListBoxes(t *testing.T) {
	repo := NewDocumentRepository(setupPostgres(t))

	draft := newDocument(1, "pg-draft", 10)
	require.NoError(t, repo.Create(draft))

	submitted := newDocument(1, "pg-submitted", 10)
	submitted.Status = model.DocumentStatusInProgress
	approver := uint(10)
	submitted.CurrentApproverID = &approver
	submitted.References = []model.DocumentReference{{EmployeeID: 30}}
	require.NoError(t, repo.Create(submitted))

	tests := []struct {
		box   DocumentBox
		who   uint
		total int64
	}{
		{BoxWritten, 1, 2},
		{BoxPending, 10, 1},
		{BoxInvolved, 10, 1},
		{BoxReferenced, 30, 1},
	}
	for _, tt := range tests {
		total, _, err := repo.List(DocumentFilter{EmployeeID: tt.who, Box: tt.box, Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, tt.total, total, tt.box)
	}
}
