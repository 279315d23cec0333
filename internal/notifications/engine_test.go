package notifications

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var historyColumns = []string{"type", "sent_at", "read_at", "clicked_at", "action_taken"}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEngine(db, nil, Config{}), mock
}

// setClock pins the engine to a fixed instant.
func setClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

// utc is shorthand for building history timestamps.
func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

// readRow builds a history row that was read at the given time.
func readRow(ntype string, sentAt, readAt time.Time) []driverValue {
	return []driverValue{ntype, sentAt, readAt, nil, false}
}

// driverValue aliases driver.Value so row builders can be passed
// straight to sqlmock's AddRow.
type driverValue = driver.Value

func addRows(rows *sqlmock.Rows, entries ...[]driverValue) *sqlmock.Rows {
	for _, e := range entries {
		rows.AddRow(e...)
	}
	return rows
}

func expectHistoryFetch(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT type, sent_at, read_at, clicked_at, action_taken").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func expectSentCount(mock sqlmock.Sqlmock, count int) {
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}
