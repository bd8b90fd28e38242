package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// seedOutbox stores one entry per status, raised a second apart in the given order
func seedOutbox(t *testing.T, repo *GormOutboxRepository, statuses ...shared.OutboxStatus) []*shared.OutboxEntry {
	t.Helper()
	base := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	entries := make([]*shared.OutboxEntry, len(statuses))
	for i, status := range statuses {
		e := shared.NewOutboxEntry(newTestEvent("PeriodClosed"), []byte(`{}`))
		e.Status = status
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		entries[i] = e
	}
	require.NoError(t, repo.Save(context.Background(), entries...))
	return entries
}

func TestGormOutboxRepository_FindDue(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	now := time.Now()

	seeded := seedOutbox(t, repo,
		shared.OutboxStatusFailed,
		shared.OutboxStatusPending,
		shared.OutboxStatusFailed,
		shared.OutboxStatusSent,
		shared.OutboxStatusDead,
		shared.OutboxStatusPending,
	)
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Where("id = ?", seeded[0].ID).
		Update("next_retry_at", now.Add(-time.Second)).Error)
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Where("id = ?", seeded[2].ID).
		Update("next_retry_at", now.Add(time.Minute)).Error)

	due, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, e := range due {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []uuid.UUID{seeded[0].ID, seeded[1].ID, seeded[5].ID}, ids,
		"failed entries not yet due, sent and dead entries stay out")

	limited, err := repo.FindDue(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGormOutboxRepository_Claim(t *testing.T) {
	repo := NewGormOutboxRepository(newOutboxDB(t))
	ctx := context.Background()
	seeded := seedOutbox(t, repo, shared.OutboxStatusPending, shared.OutboxStatusSent)

	claimed, err := repo.Claim(ctx, []uuid.UUID{seeded[0].ID, seeded[1].ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, seeded[0].ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	stored, err := repo.FindByID(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusProcessing, stored.Status)

	again, err := repo.Claim(ctx, []uuid.UUID{seeded[0].ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry is claimed once")

	none, err := repo.Claim(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGormOutboxRepository_ClaimLocksWithSkipLocked(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE id IN \(\$1\) AND status IN \(\$2,\$3\) FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "status"}).AddRow(id, "PeriodClosed", "PENDING"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET "status"=$1,"updated_at"=$2 WHERE id IN ($3)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := NewGormOutboxRepository(db).Claim(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_UpdateWritesDeliveryState(t *testing.T) {
	repo := NewGormOutboxRepository(newOutboxDB(t))
	ctx := context.Background()
	entry := seedOutbox(t, repo, shared.OutboxStatusProcessing)[0]

	entry.MarkFailed("stock card locked")
	require.NoError(t, repo.Update(ctx, entry))

	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "stock card locked", stored.LastError)
	require.NotNil(t, stored.NextRetryAt)
}

func TestGormOutboxRepository_PurgeSent(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	seeded := seedOutbox(t, repo, shared.OutboxStatusSent, shared.OutboxStatusSent, shared.OutboxStatusDead)

	old := time.Now().Add(-8 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	for id, at := range map[uuid.UUID]time.Time{seeded[0].ID: old, seeded[1].ID: recent, seeded[2].ID: old} {
		require.NoError(t, db.Model(&models.OutboxEntryModel{}).Where("id = ?", id).Update("processed_at", at).Error)
	}

	deleted, err := repo.PurgeSent(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, seeded[0].ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByID(ctx, seeded[2].ID)
	assert.NoError(t, err, "dead entries are kept for the operator")
}

func TestGormOutboxRepository_FindDead(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	seeded := seedOutbox(t, repo,
		shared.OutboxStatusDead, shared.OutboxStatusDead, shared.OutboxStatusDead, shared.OutboxStatusPending)

	base := time.Now().Add(-time.Hour)
	for i, e := range seeded[:3] {
		require.NoError(t, db.Model(&models.OutboxEntryModel{}).Where("id = ?", e.ID).
			Update("dead_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page, total, err := repo.FindDead(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, seeded[2].ID, page[0].ID, "most recently dead first")
	assert.Equal(t, seeded[1].ID, page[1].ID)

	page, _, err = repo.FindDead(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, seeded[0].ID, page[0].ID)

	page, _, err = repo.FindDead(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2, "page 0 reads as the first page")
}

func TestGormOutboxRepository_FindByIDNotFound(t *testing.T) {
	repo := NewGormOutboxRepository(newOutboxDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_CountByStatus(t *testing.T) {
	repo := NewGormOutboxRepository(newOutboxDB(t))
	seedOutbox(t, repo,
		shared.OutboxStatusPending, shared.OutboxStatusPending, shared.OutboxStatusDead, shared.OutboxStatusSent)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 2,
		shared.OutboxStatusDead:    1,
		shared.OutboxStatusSent:    1,
	}, counts)
}

func TestGormOutboxRepository_SaveNothing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	require.NoError(t, NewGormOutboxRepository(db).Save(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
