package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

func openMocked(t *testing.T, dialector func(*sql.DB) gorm.Dialector) (*GormRunRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(dialector(db), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewGormRunRepository(gdb), mock
}

func postgresDialector(db *sql.DB) gorm.Dialector {
	return postgres.New(postgres.Config{Conn: db})
}

func mysqlDialector(db *sql.DB) gorm.Dialector {
	return mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true})
}

func runColumns() []string {
	return []string{
		"id", "run_id", "source", "format", "status", "status_info", "input_size",
		"item_count", "alive_count", "garbage_count", "total_size", "garbage_size",
		"shared_size", "report_key", "create_time", "begin_time", "end_time",
	}
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := openMocked(t, postgresDialector)

	mock.ExpectQuery(`INSERT INTO "analysis_runs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	run := model.NewRun("run-pg", "app.wasm")
	require.NoError(t, repo.Create(context.Background(), run))
	assert.Equal(t, int64(42), run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByRunID(t *testing.T) {
	repo, mock := openMocked(t, postgresDialector)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "analysis_runs" WHERE run_id = \$1`).
		WillReturnRows(sqlmock.NewRows(runColumns()).AddRow(
			int64(7), "run-pg", "app.wasm", "wasm", model.RunStatusCompleted, "", int64(1024),
			12, 10, 2, uint64(900), uint64(80), uint64(16), "reports/run-pg.json", created, nil, nil,
		))

	run, err := repo.GetByRunID(context.Background(), "run-pg")
	require.NoError(t, err)
	assert.Equal(t, int64(7), run.ID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.GarbageCount)
	assert.Equal(t, uint64(80), run.GarbageSize)
	assert.Equal(t, created, run.CreateTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByRunID_NotFound(t *testing.T) {
	repo, mock := openMocked(t, postgresDialector)

	mock.ExpectQuery(`SELECT \* FROM "analysis_runs"`).
		WillReturnRows(sqlmock.NewRows(runColumns()))

	_, err := repo.GetByRunID(context.Background(), "nope")
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryError(t *testing.T) {
	repo, mock := openMocked(t, postgresDialector)

	mock.ExpectQuery(`SELECT \* FROM "analysis_runs"`).WillReturnError(sql.ErrConnDone)

	_, err := repo.List(context.Background(), ListFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsDatabaseError(err))
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Update(t *testing.T) {
	repo, mock := openMocked(t, postgresDialector)

	mock.ExpectExec(`UPDATE "analysis_runs" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "analysis_runs" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	run := model.NewRun("run-pg", "app.wasm")
	run.Status = model.RunStatusFailed
	run.StatusInfo = "[STRUCTURAL_ERROR] bad magic"
	require.NoError(t, repo.Update(context.Background(), run))

	err := repo.Update(context.Background(), model.NewRun("ghost", "x"))
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_CreateAndDelete(t *testing.T) {
	repo, mock := openMocked(t, mysqlDialector)

	mock.ExpectExec("INSERT INTO `analysis_runs`").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("DELETE FROM `analysis_runs` WHERE create_time <").WillReturnResult(sqlmock.NewResult(0, 3))

	run := model.NewRun("run-my", "app.wasm")
	require.NoError(t, repo.Create(context.Background(), run))
	assert.Equal(t, int64(9), run.ID)

	n, err := repo.DeleteBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
