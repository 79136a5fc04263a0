package snapshot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"echocircle/internal/models"
	"echocircle/internal/state"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*DatabaseStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return NewDatabaseStore(gormDB, "echocircle:state"), mock
}

func TestDatabaseStore_LoadColdStart(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "data", "updated_at"}))

	loaded, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, loaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStore_LoadReturnsStoredSnapshot(t *testing.T) {
	store, mock := setupMockDB(t)

	s := state.NewState()
	s.Session.User = &models.User{ID: "u1"}
	s.Session.Token = "tok-123"
	data, err := json.Marshal(Capture(s, 2))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "data", "updated_at"}).
			AddRow("echocircle:state", data, time.Now()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.Version)
	assert.Equal(t, "u1", loaded.User.ID)
	assert.Equal(t, "tok-123", loaded.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStore_LoadQueryError(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "snapshots"`).
		WillReturnError(assert.AnError)

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestDatabaseStore_LoadCorruptBlobReturnsError(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "data", "updated_at"}).
			AddRow("echocircle:state", []byte("{not json"), time.Now()))

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestDatabaseStore_SaveUpserts(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "snapshots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Save(context.Background(), Capture(state.NewState(), 1))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStore_SaveFailurePropagates(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "snapshots"`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.Save(context.Background(), Capture(state.NewState(), 1))
	assert.Error(t, err)
}

func TestDatabaseStore_Clear(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "snapshots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
