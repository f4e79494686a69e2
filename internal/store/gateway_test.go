package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ops-console-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(&model.EquipmentType{}, &model.Equipment{}, &model.Operator{}))
	return gormDB
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func operatorTable(db *gorm.DB) *Table[model.Operator] {
	return NewTable(db, "operators", zap.NewNop(),
		SequenceOrder("seq_id", "created_at", func(o *model.Operator, seq int64) { o.SeqID = &seq }),
	)
}

func equipmentTable(db *gorm.DB) *Table[model.Equipment] {
	return NewTable(db, "equipment", zap.NewNop(),
		SequenceOrder("seq_id", "created_at", func(e *model.Equipment, seq int64) { e.SeqID = &seq }),
		Join("Type", func(e *model.Equipment) {
			if e.Type != nil {
				e.TypeName = e.Type.Name
			}
		}),
	)
}

func TestTable_Insert(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "operators"`)).
		WithArgs("Joana Lima", "1234", "active", Any{}, Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	op := model.Operator{Name: "Joana Lima", PIN: "1234", Status: model.StatusActive}
	require.NoError(t, table.Insert(context.Background(), &op))
	assert.Equal(t, int64(11), op.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_InsertFailureIsStorageError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "operators"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := table.Insert(context.Background(), &model.Operator{Name: "Joana Lima", PIN: "1234", Status: model.StatusActive})
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "insert", storageErr.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_Update(t *testing.T) {
	testCases := []struct {
		name         string
		rowsAffected int64
		wantNotFound bool
	}{
		{name: "row updated", rowsAffected: 1},
		{name: "missing row", rowsAffected: 0, wantNotFound: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			table := operatorTable(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "operators" SET "status"=$1,"updated_at"=$2 WHERE id = $3`)).
				WithArgs("inactive", Any{}, 7).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
			mock.ExpectCommit()

			err := table.Update(context.Background(), 7, map[string]any{"status": model.StatusInactive})
			if tc.wantNotFound {
				assert.True(t, IsNotFound(err))
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTable_Delete(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "operators" WHERE "operators"."id" = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, table.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_GetField(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)

	mock.ExpectQuery(`SELECT .*status.* FROM "operators" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))

	row, err := table.GetField(context.Background(), 7, "status")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, row.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_GetFieldNotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)

	mock.ExpectQuery(`SELECT .*status.* FROM "operators" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := table.GetField(context.Background(), 99, "status")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(99), nf.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_ListSequenceMissingIsSticky(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// First call: ordering column is reported missing, then the fallback runs.
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "operators"."seq_id"`)).
		WillReturnError(&pgconn.PgError{Code: "42703", Message: "column operators.seq_id does not exist"})
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "operators"."created_at"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "pin", "status", "created_at", "updated_at"}).
			AddRow(3, "Ana", "1111", "active", created, created).
			AddRow(1, "Bruno", "2222", "inactive", created.Add(time.Minute), created.Add(time.Minute)))
	// Second call goes straight to the fallback.
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "operators"."created_at"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "pin", "status", "created_at", "updated_at"}).
			AddRow(3, "Ana", "1111", "active", created, created))

	rows, err := table.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), *rows[0].SeqID)
	assert.Equal(t, int64(2), *rows[1].SeqID)
	assert.True(t, table.SequenceFallback())

	rows, err = table.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_ListOtherErrorsAreNotFallback(t *testing.T) {
	gormDB, mock := newMockDB(t)
	table := operatorTable(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "operators"."seq_id"`)).
		WillReturnError(errors.New("permission denied for table operators"))

	_, err := table.List(context.Background())
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.False(t, table.SequenceFallback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_SQLiteFallbackAndJoin(t *testing.T) {
	gormDB := newSQLiteDB(t)
	table := equipmentTable(gormDB)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	weld := model.EquipmentType{Name: "Solda"}
	require.NoError(t, gormDB.Create(&weld).Error)
	require.NoError(t, gormDB.Create(&model.Equipment{Tag: "EQ-2", TypeID: &weld.ID, Status: model.StatusActive, CreatedAt: base.Add(time.Hour)}).Error)
	require.NoError(t, gormDB.Create(&model.Equipment{Tag: "EQ-1", Status: model.StatusInactive, CreatedAt: base}).Error)

	assert.False(t, table.NegotiateOrdering())

	rows, err := table.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "EQ-1", rows[0].Tag)
	assert.Equal(t, "", rows[0].TypeName)
	assert.Equal(t, int64(1), *rows[0].SeqID)

	assert.Equal(t, "EQ-2", rows[1].Tag)
	assert.Equal(t, "Solda", rows[1].TypeName)
	assert.Equal(t, int64(2), *rows[1].SeqID)
}

func TestTable_SQLiteRuntimeFallback(t *testing.T) {
	gormDB := newSQLiteDB(t)
	table := operatorTable(gormDB)

	require.NoError(t, gormDB.Create(&model.Operator{Name: "Carla", PIN: "4321", Status: model.StatusActive}).Error)

	rows, err := table.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, table.SequenceFallback())
}

func TestTable_SQLiteSequenceColumnPresent(t *testing.T) {
	gormDB := newSQLiteDB(t)
	require.NoError(t, gormDB.Exec(`ALTER TABLE operators ADD COLUMN seq_id integer`).Error)
	table := operatorTable(gormDB)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, gormDB.Create(&model.Operator{Name: "Primeiro", PIN: "1111", Status: model.StatusActive, CreatedAt: base}).Error)
	require.NoError(t, gormDB.Create(&model.Operator{Name: "Segundo", PIN: "2222", Status: model.StatusActive, CreatedAt: base.Add(time.Hour)}).Error)
	require.NoError(t, gormDB.Exec(`UPDATE operators SET seq_id = 20 WHERE name = ?`, "Primeiro").Error)
	require.NoError(t, gormDB.Exec(`UPDATE operators SET seq_id = 10 WHERE name = ?`, "Segundo").Error)

	assert.True(t, table.NegotiateOrdering())
	rows, err := table.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Segundo", rows[0].Name)
	assert.Equal(t, int64(10), *rows[0].SeqID)
	assert.False(t, table.SequenceFallback())
}

func TestIsUndefinedColumn(t *testing.T) {
	assert.True(t, IsUndefinedColumn(&pgconn.PgError{Code: "42703"}))
	assert.False(t, IsUndefinedColumn(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUndefinedColumn(errors.New("no such column: operators.seq_id")))
	assert.True(t, IsUndefinedColumn(errors.New("column operators.seq_id does not exist")))
	assert.False(t, IsUndefinedColumn(errors.New("timeout")))
	assert.False(t, IsUndefinedColumn(nil))
}
