package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"videogen/campaign"
	"videogen/customer"
	"videogen/sink/parquetfile"
	"videogen/telemetry"
	"videogen/title"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testConfig(dir string) Config {
	return Config{
		OutputDir:          dir,
		Seed:               42,
		NumCustomers:       100,
		NumTitles:          50,
		NumTelemetryEvents: 1000,
		NumCampaigns:       20,
		BatchSize:          300,
		AsOf:               asOf,
	}
}

func run(t *testing.T, dir string) *Metadata {
	t.Helper()
	d := New(testConfig(dir))
	d.now = func() time.Time { return asOf.Add(time.Hour) }
	meta, err := d.GenerateAll(context.Background())
	require.NoError(t, err)
	return meta
}

func TestGenerateAll(t *testing.T) {
	dir := t.TempDir()
	meta := run(t, dir)

	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, 1000, meta.NumTelemetryEvents)

	onDisk, err := ReadMetadata(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, meta, onDisk)
	assert.Equal(t, "2025-06-01T01:00:00Z", onDisk.GenerationTimestamp)

	customers, err := parquetfile.ReadFile[customer.Row](filepath.Join(dir, "customers", "customers.parquet"))
	require.NoError(t, err)
	assert.Len(t, customers, 100)
	titles, err := parquetfile.ReadFile[title.Row](filepath.Join(dir, "titles", "titles.parquet"))
	require.NoError(t, err)
	assert.Len(t, titles, 50)
	campaigns, err := parquetfile.ReadFile[campaign.Row](filepath.Join(dir, "campaigns", "campaigns.parquet"))
	require.NoError(t, err)
	assert.Len(t, campaigns, 20)

	total := 0
	batches := map[string]bool{}
	root := filepath.Join(dir, "telemetry")
	err = filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return err
		}
		batches[e.Name()] = true
		rows, err := parquetfile.ReadFile[telemetry.Row](path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		for _, r := range rows {
			assert.Equal(t, filepath.ToSlash(rel), eventKey(r).Path())
		}
		total += len(rows)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, total)
	assert.Equal(t, map[string]bool{
		"batch_0000.parquet": true,
		"batch_0001.parquet": true,
		"batch_0002.parquet": true,
		"batch_0003.parquet": true,
	}, batches)
}

func readTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	files := map[string][]byte{}
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() || !strings.HasSuffix(path, ".parquet") {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[rel] = data
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestGenerateAllDeterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	run(t, a)
	run(t, b)

	filesA, filesB := readTree(t, a), readTree(t, b)
	require.NotEmpty(t, filesA)
	require.Equal(t, len(filesA), len(filesB))
	for rel, data := range filesA {
		assert.Equal(t, data, filesB[rel], rel)
	}
}

func TestGenerateAllCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(dir)).GenerateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Earlier stages are left in place.
	_, err = os.Stat(filepath.Join(dir, "customers", "customers.parquet"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, MetadataFile))
	assert.True(t, os.IsNotExist(err))
}

func TestNewDefaults(t *testing.T) {
	d := New(Config{})
	assert.Equal(t, DefaultBatchSize, d.cfg.BatchSize)
	assert.Equal(t, DefaultDateRangeDays, d.cfg.DateRangeDays)
	assert.Equal(t, d.cfg.AsOf, d.cfg.AsOf.Truncate(24*time.Hour))
}

func TestGenerateAllWithoutTelemetry(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.NumTelemetryEvents = 0
	meta, err := New(cfg).GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, meta.NumTelemetryEvents)

	for _, sub := range []string{"customers", "titles", "telemetry", "campaigns"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir(), sub)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "telemetry"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
