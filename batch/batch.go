// Package batch produces the full offline dataset: customers, titles,
// hour-partitioned telemetry and campaigns, plus a metadata manifest.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"videogen/campaign"
	"videogen/customer"
	"videogen/gen"
	"videogen/sink/parquetfile"
	"videogen/telemetry"
	"videogen/title"

	"go.uber.org/zap"
)

const (
	DefaultBatchSize     = 1_000_000
	DefaultDateRangeDays = 30

	MetadataFile = "metadata.json"
)

type Config struct {
	OutputDir string
	Seed      int64

	NumCustomers       int
	NumTitles          int
	NumTelemetryEvents int
	NumCampaigns       int

	// Telemetry events held in memory at once.
	BatchSize int
	// Telemetry spans this many days before AsOf.
	DateRangeDays int
	// Reference time for every generated date. Zero means today 00:00 UTC.
	AsOf time.Time
}

// Metadata is the manifest written next to the generated tables.
type Metadata struct {
	GenerationTimestamp string `json:"generation_timestamp"`
	Seed                int64  `json:"seed"`
	NumCustomers        int    `json:"num_customers"`
	NumTitles           int    `json:"num_titles"`
	NumTelemetryEvents  int    `json:"num_telemetry_events"`
	NumCampaigns        int    `json:"num_campaigns"`
}

type DataGenerator struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *DataGenerator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DateRangeDays <= 0 {
		cfg.DateRangeDays = DefaultDateRangeDays
	}
	if cfg.AsOf.IsZero() {
		cfg.AsOf = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return &DataGenerator{cfg: cfg, now: time.Now}
}

// GenerateAll writes every table under OutputDir. Stages run in order and
// nothing is rolled back on failure; files already written stay on disk.
func (d *DataGenerator) GenerateAll(ctx context.Context) (*Metadata, error) {
	cfg := d.cfg
	log := zap.S()
	log.Infof("Generating dataset in %s (seed %d, as of %s)", cfg.OutputDir, cfg.Seed, cfg.AsOf.Format(gen.DateTimeLayout))

	customers, err := customer.NewGenerator(gen.NewRng(cfg.Seed), cfg.AsOf).Generate(cfg.NumCustomers)
	if err != nil {
		return nil, fmt.Errorf("generate customers: %w", err)
	}
	if err := writeTable(cfg.OutputDir, "customers", customer.Rows(customers)); err != nil {
		return nil, err
	}
	log.Infof("Wrote %d customers", len(customers))

	titles, err := title.NewGenerator(gen.NewRng(cfg.Seed), cfg.AsOf).Generate(cfg.NumTitles)
	if err != nil {
		return nil, fmt.Errorf("generate titles: %w", err)
	}
	if err := writeTable(cfg.OutputDir, "titles", title.Rows(titles)); err != nil {
		return nil, err
	}
	log.Infof("Wrote %d titles", len(titles))

	events, err := d.writeTelemetry(ctx, customers, titles)
	if err != nil {
		return nil, err
	}
	log.Infof("Wrote %d telemetry events", events)

	campaigns, err := campaign.NewGenerator(gen.NewRng(cfg.Seed), cfg.AsOf).Generate(cfg.NumCampaigns)
	if err != nil {
		return nil, fmt.Errorf("generate campaigns: %w", err)
	}
	if err := writeTable(cfg.OutputDir, "campaigns", campaign.Rows(campaigns)); err != nil {
		return nil, err
	}
	log.Infof("Wrote %d campaigns", len(campaigns))

	meta := &Metadata{
		GenerationTimestamp: d.now().UTC().Format(time.RFC3339),
		Seed:                cfg.Seed,
		NumCustomers:        len(customers),
		NumTitles:           len(titles),
		NumTelemetryEvents:  events,
		NumCampaigns:        len(campaigns),
	}
	if err := writeMetadata(filepath.Join(cfg.OutputDir, MetadataFile), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// writeTable writes <dir>/<name>/<name>.parquet.
func writeTable[T any](dir, name string, rows []T) error {
	path := filepath.Join(dir, name, name+".parquet")
	if err := parquetfile.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func eventKey(r telemetry.Row) parquetfile.PartitionKey {
	ts, err := time.Parse(gen.DateTimeLayout, r.EventTimestamp)
	if err != nil {
		panic(fmt.Sprintf("event %s: malformed timestamp %q", r.EventID, r.EventTimestamp))
	}
	return parquetfile.HourKey(ts)
}

// writeTelemetry generates events in batches of BatchSize, writing batch i
// to telemetry/<hour partition>/batch_<i>.parquet.
func (d *DataGenerator) writeTelemetry(ctx context.Context, customers []customer.Customer, titles []title.Title) (int, error) {
	cfg := d.cfg
	root := filepath.Join(cfg.OutputDir, "telemetry")
	// The directory exists even when no events are requested.
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", root, err)
	}
	if cfg.NumTelemetryEvents <= 0 {
		return 0, nil
	}
	tg, err := telemetry.NewGenerator(gen.NewRng(cfg.Seed), customers, titles, cfg.AsOf)
	if err != nil {
		return 0, fmt.Errorf("generate telemetry: %w", err)
	}

	written := 0
	for batch := 0; written < cfg.NumTelemetryEvents; batch++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		size := min(cfg.BatchSize, cfg.NumTelemetryEvents-written)
		events, err := tg.Generate(size, cfg.DateRangeDays)
		if err != nil {
			return written, fmt.Errorf("generate telemetry batch %d: %w", batch, err)
		}
		parts, err := parquetfile.WritePartitioned(root, fmt.Sprintf("batch_%04d.parquet", batch), telemetry.Rows(events), eventKey)
		if err != nil {
			return written, fmt.Errorf("write telemetry batch %d: %w", batch, err)
		}
		written += size
		zap.S().Infof("Telemetry batch %d: %d events in %d partitions (%d/%d)", batch, size, len(parts), written, cfg.NumTelemetryEvents)
	}
	return written, nil
}

func writeMetadata(path string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &meta, nil
}
