package main

import (
	"context"
	"fmt"
	"time"
	"videogen/gen"
	"videogen/reference"
	"videogen/secrets"
	"videogen/sink"
	"videogen/sink/firehose"
	"videogen/sink/kafka"
	"videogen/sink/kinesis"
	"videogen/sink/mysql"
	"videogen/sink/nats"
	"videogen/sink/postgres"
	"videogen/sink/pulsar"
	"videogen/sink/s3"
	"videogen/telemetry"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// resolvePassword replaces the SQL sink password with the one stored in
// Secrets Manager when a secret name is configured.
func resolvePassword(ctx context.Context, cfg *gen.GeneratorConfig) error {
	if cfg.PasswordSecret == "" {
		return nil
	}
	m, err := secrets.Load(ctx, cfg.SecretRegion)
	if err != nil {
		return err
	}
	password, err := m.Password(ctx, cfg.PasswordSecret)
	if err != nil {
		return err
	}
	cfg.Postgres.DbPassword = password
	cfg.Mysql.DbPassword = password
	return nil
}

func createSink(ctx context.Context, cfg gen.GeneratorConfig) (sink.Sink, error) {
	if cfg.Sink == "postgres" {
		return postgres.OpenPostgresSink(cfg.Postgres)
	} else if cfg.Sink == "mysql" {
		return mysql.OpenMysqlSink(cfg.Mysql)
	} else if cfg.Sink == "kafka" {
		return kafka.OpenKafkaSink(ctx, cfg.Kafka)
	} else if cfg.Sink == "pulsar" {
		return pulsar.OpenPulsarSink(ctx, cfg.Pulsar)
	} else if cfg.Sink == "nats" {
		return nats.OpenNatsSink(cfg.Nats)
	} else if cfg.Sink == "kinesis" {
		return kinesis.OpenKinesisSink(cfg.Kinesis)
	} else if cfg.Sink == "firehose" {
		return firehose.OpenFirehoseSink(cfg.Firehose)
	} else if cfg.Sink == "s3" {
		return s3.OpenS3Sink(cfg.S3)
	} else {
		return nil, fmt.Errorf("invalid sink type: %s", cfg.Sink)
	}
}

// newGen creates a new generator based on the given config.
func newGen(cfg gen.GeneratorConfig) (gen.LoadGenerator, error) {
	set, err := reference.Build(cfg, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if cfg.Mode == "telemetry" {
		return telemetry.NewStreamGen(cfg, set.Customers, set.Titles)
	} else if cfg.Mode == "reference" {
		if cfg.Format == "avro" {
			return nil, fmt.Errorf("format %s is not supported in reference mode", cfg.Format)
		}
		return reference.NewReferenceGen(set), nil
	} else {
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
}

// spawnGen spawns a goroutine to generate data and send it to outCh.
func spawnGen(ctx context.Context, cfg gen.GeneratorConfig, outCh chan<- sink.SinkRecord) (gen.LoadGenerator, error) {
	gen, err := newGen(cfg)
	if err != nil {
		return nil, err
	}
	go gen.Load(ctx, outCh)
	return gen, nil
}

// generateLoad generates data and sends it to the given sink.
func generateLoad(ctx context.Context, cfg gen.GeneratorConfig) error {
	if err := resolvePassword(ctx, &cfg); err != nil {
		return err
	}
	sinkImpl, err := createSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err = sinkImpl.Close(); err != nil {
			zap.S().Error(err)
		}
	}()

	// Stops the generator goroutine once sending ends.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outCh := make(chan sink.SinkRecord, 1000)
	gen, err := spawnGen(ctx, cfg, outCh)
	if err != nil {
		return err
	}

	err = sinkImpl.Prepare(gen.KafkaTopics())
	if err != nil {
		return err
	}

	return sendLoad(ctx, cfg, sinkImpl, outCh)
}

// sendLoad drains outCh into the sink at most cfg.Qps records per second.
// It returns when the generator closes the channel, cfg.Total records have
// been sent or ctx is cancelled.
func sendLoad(ctx context.Context, cfg gen.GeneratorConfig, sinkImpl sink.Sink, outCh <-chan sink.SinkRecord) error {
	log := zap.S()
	count := int64(0)
	initTime := time.Now()
	prevTime := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	rl := ratelimit.New(cfg.Qps, ratelimit.WithoutSlack) // per second
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if time.Since(prevTime) >= 10*time.Second {
				log.Infof("Sent %d records in total (Elapsed: %s)", count, time.Since(initTime).String())
				prevTime = time.Now()
			}
		case record, ok := <-outCh:
			if !ok {
				log.Infof("Generator exhausted after %d records (Elapsed: %s)", count, time.Since(initTime).String())
				return nil
			}
			if cfg.PrintInsert {
				fmt.Println(record.ToPostgresSql())
			}
			// Consume records from the channel and send to sink.
			if err := sinkImpl.WriteRecord(ctx, cfg.Format, record); err != nil {
				return err
			}
			_ = rl.Take()
			count++
			if cfg.Total > 0 && count >= cfg.Total {
				log.Infof("Sent %d records, stopping (Elapsed: %s)", count, time.Since(initTime).String())
				return nil
			}
			if time.Since(prevTime) >= 10*time.Second {
				log.Infof("Sent %d records in total (Elapsed: %s)", count, time.Since(initTime).String())
				prevTime = time.Now()
			}
		}
	}
}
