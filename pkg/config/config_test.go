package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Import.HeaderOffset)
	assert.Equal(t, "Fecha", cfg.Import.DateColumn)
	assert.Equal(t, "Detalle", cfg.Import.DetailColumn)
	assert.Equal(t, "Monto cargo ($)", cfg.Import.AmountColumn)
	assert.Equal(t, 0, cfg.Import.DateDayShift)
	assert.False(t, cfg.Import.DedupWithinBatch)
	assert.Equal(t, 1, cfg.Import.SubmitConcurrency)
	assert.Equal(t, "CLP", cfg.Import.CurrencyCode)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("IMPORT_HEADER_OFFSET", "0")
	t.Setenv("IMPORT_DATE_DAY_SHIFT", "-1")
	t.Setenv("IMPORT_SUBMIT_CONCURRENCY", "0")
	t.Setenv("IMPORT_DEDUP_WITHIN_BATCH", "true")
	t.Setenv("NOTIFY_EMAIL_TO", "a@example.com, b@example.com,")
	t.Setenv("POSTGRES_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Import.HeaderOffset)
	assert.Equal(t, -1, cfg.Import.DateDayShift)
	assert.Equal(t, 1, cfg.Import.SubmitConcurrency, "concurrency is clamped to sequential")
	assert.True(t, cfg.Import.DedupWithinBatch)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.EmailTo)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_NegativeOffset(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("IMPORT_HEADER_OFFSET", "-3")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "gastos", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gastos sslmode=disable", c.DSN())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (testing.T.Chdir is unavailable before Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
