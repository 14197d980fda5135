package history

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DBPath:       filepath.Join(t.TempDir(), "history.db"),
		Enabled:      true,
		BatchSize:    2,
		BatchTimeout: 0,
	}
}

func snapshotAt(ts time.Time, fanSpeed int) telemetry.Snapshot {
	return telemetry.Snapshot{
		Timestamp:   ts,
		Temperature: 21.5,
		Humidity:    40,
		Gas:         1234,
		NH3:         6.42,
		CO2:         1510,
		TD:          1201,
		Light:       33,
		Distance:    17,
		FanSpeed:    fanSpeed,
	}
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDisabledServiceIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	rec, err := NewService(cfg, logger.Default())
	require.NoError(t, err)

	assert.NoError(t, rec.Record(context.Background(), telemetry.Snapshot{}, true))
	assert.NoError(t, rec.Close())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())

	err := Config{Enabled: true}.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidDBPath))

	err = Config{Enabled: true, DBPath: "x.db", BatchSize: -1}.Validate()
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestRecordFlushesInBatches(t *testing.T) {
	cfg := testConfig(t)
	rec, err := NewService(cfg, logger.Default())
	require.NoError(t, err)

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(context.Background(), snapshotAt(t0, 128), true))

	db := openDB(t, cfg.DBPath)
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count))
	assert.Zero(t, count, "first entry stays buffered")

	require.NoError(t, rec.Record(context.Background(), snapshotAt(t0.Add(5*time.Second), 200), false))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count))
	assert.Equal(t, 2, count)

	require.NoError(t, rec.Record(context.Background(), snapshotAt(t0.Add(10*time.Second), 255), true))
	require.NoError(t, rec.Close())

	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count))
	assert.Equal(t, 3, count, "close flushes the remainder")

	var (
		ts        int64
		fanSpeed  int
		delivered int
	)
	require.NoError(t, db.QueryRow(
		"SELECT timestamp_ms, fan_speed, delivered FROM reports ORDER BY id LIMIT 1 OFFSET 1",
	).Scan(&ts, &fanSpeed, &delivered))
	assert.Equal(t, t0.Add(5*time.Second).UnixMilli(), ts)
	assert.Equal(t, 200, fanSpeed)
	assert.Equal(t, 0, delivered)
}

func TestUnknownClimateStoredAsNull(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 1
	rec, err := NewService(cfg, logger.Default())
	require.NoError(t, err)

	snap := snapshotAt(time.Now(), 128)
	snap.Temperature = math.NaN()
	snap.Humidity = math.NaN()
	require.NoError(t, rec.Record(context.Background(), snap, true))
	require.NoError(t, rec.Close())

	var temp, hum sql.NullFloat64
	db := openDB(t, cfg.DBPath)
	require.NoError(t, db.QueryRow("SELECT temperature_c, humidity_percent FROM reports").Scan(&temp, &hum))
	assert.False(t, temp.Valid)
	assert.False(t, hum.Valid)
}

func TestRecordAfterCancel(t *testing.T) {
	rec, err := NewService(testConfig(t), logger.Default())
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rec.Record(ctx, snapshotAt(time.Now(), 1), true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrOperationTimeout))
}

func TestSchemaMismatchRecreatesWithBackup(t *testing.T) {
	cfg := testConfig(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))
	seed, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = seed.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	repo, err := NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.DBPath), backupDirName, "history_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	db := openDB(t, cfg.DBPath)
	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestPeriodicFlush(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.BatchTimeout = 1
	rec, err := NewService(cfg, logger.Default())
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, rec.Record(context.Background(), snapshotAt(time.Now(), 64), true))

	db := openDB(t, cfg.DBPath)
	assert.Eventually(t, func() bool {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count); err != nil {
			return false
		}
		return count == 1
	}, 3*time.Second, 50*time.Millisecond)
}
