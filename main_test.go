package main

import (
	"path/filepath"
	"testing"
	"videogen/batch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	app := newApp()
	names := []string{}
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"batch", "upload", "stream"}, names)

	stream := app.Command("stream")
	require.NotNil(t, stream)
	sinks := []string{}
	for _, c := range stream.Subcommands {
		sinks = append(sinks, c.Name)
	}
	assert.ElementsMatch(t, []string{"postgres", "mysql", "kafka", "pulsar", "nats", "kinesis", "firehose", "s3"}, sinks)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	err := newApp().Run([]string{
		"datagen", "batch",
		"--customers", "20",
		"--titles", "10",
		"--telemetry", "50",
		"--campaigns", "5",
		"--seed", "7",
		"--as-of", "2024-01-15",
		"--output-dir", dir,
	})
	require.NoError(t, err)

	meta, err := batch.ReadMetadata(filepath.Join(dir, batch.MetadataFile))
	require.NoError(t, err)
	assert.EqualValues(t, 7, meta.Seed)
	assert.Equal(t, 20, meta.NumCustomers)
	assert.Equal(t, 10, meta.NumTitles)
	assert.Equal(t, 50, meta.NumTelemetryEvents)
	assert.Equal(t, 5, meta.NumCampaigns)
}

func TestBatchCommandRejectsBadDate(t *testing.T) {
	err := newApp().Run([]string{"datagen", "batch", "--as-of", "15/01/2024", "--output-dir", t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--as-of")
}
