package audit

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	auditStore, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: auditStore}
}

func testRecord(id string, createdAt time.Time) store.AuditRecord {
	return store.AuditRecord{
		ID:                  id,
		ResourceType:        "AWS::EC2::SecurityGroup",
		ResourceID:          "sg-1",
		Region:              "us-east-1",
		Account:             "123456789012",
		Rule:                "no-open-ssh",
		Compliance:          "NON_COMPLIANT",
		Reason:              "port 22 open to 0.0.0.0/0",
		RemediationAction:   "revoke-open-ssh",
		RemediationStatus:   "succeeded",
		RemediationAttempts: 1,
		RemediationReason:   "resource converged to target state",
		EvaluatedAt:         createdAt,
		CreatedAt:           createdAt,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		assert.NotNil(t, f.store)
	})

	t.Run("nil db", func(t *testing.T) {
		auditStore, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, auditStore)
	})
}

func TestStore_Append(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	err := f.store.Append(ctx, testRecord("rec-1", time.Now().UTC()))
	require.NoError(t, err)

	records, err := f.store.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "no-open-ssh", records[0].Rule)
	assert.Equal(t, 1, records[0].RemediationAttempts)
}

func TestStore_Append_WithTransaction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)

	txCtx := duckdb.WithTransaction(ctx, tx)
	require.NoError(t, f.store.Append(txCtx, testRecord("rec-tx", time.Now().UTC())))
	require.NoError(t, tx.Commit())

	records, err := f.store.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-tx", records[0].ID)
}

func TestStore_GetRecent(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := testRecord(fmt.Sprintf("rec-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, f.store.Append(ctx, rec))
	}

	t.Run("newest first", func(t *testing.T) {
		records, err := f.store.GetRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, records, 5)
		assert.Equal(t, "rec-4", records[0].ID)
		assert.Equal(t, "rec-0", records[4].ID)
	})

	t.Run("limit applies", func(t *testing.T) {
		records, err := f.store.GetRecent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		records, err := f.store.GetRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, records, 5)
	})
}

func TestStore_GetByResource(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sg := testRecord("rec-sg", now)
	require.NoError(t, f.store.Append(ctx, sg))

	bucket := testRecord("rec-bucket", now)
	bucket.ResourceType = "AWS::S3::Bucket"
	bucket.ResourceID = "logs"
	require.NoError(t, f.store.Append(ctx, bucket))

	records, err := f.store.GetByResource(ctx, "AWS::S3::Bucket", "logs", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-bucket", records[0].ID)

	records, err = f.store.GetByResource(ctx, "AWS::S3::Bucket", "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_QueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	auditStore, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("append surfaces store errors", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO audit_records").
			WillReturnError(fmt.Errorf("disk full"))

		err := auditStore.Append(ctx, testRecord("rec-1", time.Now()))
		assert.ErrorContains(t, err, "insert audit record")
	})

	t.Run("get recent surfaces store errors", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM audit_records").
			WillReturnError(fmt.Errorf("connection lost"))

		_, err := auditStore.GetRecent(ctx, 10)
		assert.ErrorContains(t, err, "query audit records")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
