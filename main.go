package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"videogen/batch"
	"videogen/gen"
	"videogen/logging"
	"videogen/upload"

	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	cfg       gen.GeneratorConfig = gen.GeneratorConfig{}
	batchCfg  batch.Config        = batch.Config{}
	uploadCfg upload.Config       = upload.Config{}

	verbose bool
	asOf    string
)

func env(name string) string {
	return "DATAGEN_" + name
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	terminateCh := make(chan os.Signal, 1)
	signal.Notify(terminateCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-terminateCh
		zap.S().Info("Cancelled")
		cancel()
	}()
	return ctx
}

func runStream(sinkName string) error {
	cfg.Sink = sinkName
	return generateLoad(signalContext(), cfg)
}

func runBatch() error {
	if asOf != "" {
		t, err := time.Parse(gen.DateLayout, asOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: %w", asOf, err)
		}
		batchCfg.AsOf = t
	}
	meta, err := batch.New(batchCfg).GenerateAll(signalContext())
	if err != nil {
		return err
	}
	zap.S().Infof("Generated %d customers, %d titles, %d telemetry events and %d campaigns in %s",
		meta.NumCustomers, meta.NumTitles, meta.NumTelemetryEvents, meta.NumCampaigns, batchCfg.OutputDir)
	return nil
}

func runUpload() error {
	ctx := signalContext()
	log := zap.S()
	if arn, err := upload.CallerIdentity(ctx, uploadCfg.Region); err != nil {
		log.Warnf("Could not resolve AWS identity: %v", err)
	} else {
		log.Infof("Uploading as %s", arn)
	}
	u, err := upload.Open(uploadCfg)
	if err != nil {
		return err
	}
	if err := u.VerifyBucket(ctx); err != nil {
		return err
	}
	_, err = u.Run(ctx)
	return err
}

func sqlSecretFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:        "password-secret",
			Usage:       "Name of a Secrets Manager secret whose \"password\" field overrides --password",
			EnvVar:      env("PASSWORD_SECRET"),
			Destination: &cfg.PasswordSecret,
		},
		cli.StringFlag{
			Name:        "secret-region",
			Usage:       "The region of the Secrets Manager secret",
			Value:       "us-east-1",
			EnvVar:      env("SECRET_REGION"),
			Destination: &cfg.SecretRegion,
		},
	}
}

func streamCommands() []cli.Command {
	return []cli.Command{
		{
			Name: "postgres",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:        "host",
					Usage:       "The host address of the PostgreSQL server",
					Required:    false,
					Value:       "localhost",
					EnvVar:      env("PG_HOST"),
					Destination: &cfg.Postgres.DbHost,
				},
				cli.StringFlag{
					Name:        "db",
					Usage:       "The database where the target table is located",
					Required:    false,
					Value:       "acme",
					EnvVar:      env("PG_DB"),
					Destination: &cfg.Postgres.Database,
				},
				cli.IntFlag{
					Name:        "port",
					Usage:       "The port of the PostgreSQL server",
					Required:    false,
					Value:       5432,
					EnvVar:      env("PG_PORT"),
					Destination: &cfg.Postgres.DbPort,
				},
				cli.StringFlag{
					Name:        "user",
					Usage:       "The user to Postgres",
					Required:    false,
					Value:       "postgres",
					EnvVar:      env("PG_USER"),
					Destination: &cfg.Postgres.DbUser,
				},
				cli.StringFlag{
					Name:        "password",
					Usage:       "The password to Postgres",
					Required:    false,
					EnvVar:      env("PG_PASSWORD"),
					Destination: &cfg.Postgres.DbPassword,
				},
			}, sqlSecretFlags()...),
			Action: func(c *cli.Context) error {
				return runStream("postgres")
			},
		},
		{
			Name: "mysql",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:        "host",
					Usage:       "The host address of the MySQL server",
					Required:    false,
					Value:       "localhost",
					EnvVar:      env("MYSQL_HOST"),
					Destination: &cfg.Mysql.DbHost,
				},
				cli.StringFlag{
					Name:        "db",
					Usage:       "The database where the target table is located",
					Required:    false,
					Value:       "acme",
					EnvVar:      env("MYSQL_DB"),
					Destination: &cfg.Mysql.Database,
				},
				cli.IntFlag{
					Name:        "port",
					Usage:       "The port of the MySQL server",
					Required:    false,
					Value:       3306,
					EnvVar:      env("MYSQL_PORT"),
					Destination: &cfg.Mysql.DbPort,
				},
				cli.StringFlag{
					Name:        "user",
					Usage:       "The user to MySQL",
					Required:    false,
					Value:       "mysqluser",
					EnvVar:      env("MYSQL_USER"),
					Destination: &cfg.Mysql.DbUser,
				},
				cli.StringFlag{
					Name:        "password",
					Usage:       "The password to MySQL",
					Required:    false,
					EnvVar:      env("MYSQL_PASSWORD"),
					Destination: &cfg.Mysql.DbPassword,
				},
			}, sqlSecretFlags()...),
			Action: func(c *cli.Context) error {
				return runStream("mysql")
			},
		},
		{
			Name: "kafka",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "brokers",
					Usage:       "Kafka bootstrap brokers to connect to, as a comma separated list",
					Required:    true,
					EnvVar:      env("KAFKA_BROKERS"),
					Destination: &cfg.Kafka.Brokers,
				},
				cli.BoolFlag{
					Name:        "no-recreate",
					Usage:       "Do not recreate the Kafka topic when it exists.",
					Required:    false,
					Destination: &cfg.Kafka.NoRecreateIfExists,
				},
				cli.IntFlag{
					Name:        "partitions",
					Usage:       "Number of partitions of a newly created topic",
					Value:       3,
					Destination: &cfg.Kafka.NumPartitions,
				},
				cli.IntFlag{
					Name:        "replication-factor",
					Usage:       "Replication factor of a newly created topic",
					Value:       1,
					Destination: &cfg.Kafka.ReplicationFactor,
				},
			},
			Action: func(c *cli.Context) error {
				return runStream("kafka")
			},
			HelpName: "datagen stream kafka",
		},
		{
			Name: "pulsar",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "brokers",
					Usage:       "Pulsar brokers to connect to, as a comma separated list",
					Required:    true,
					EnvVar:      env("PULSAR_BROKERS"),
					Destination: &cfg.Pulsar.Brokers,
				},
				cli.StringFlag{
					Name:        "namespace",
					Usage:       "Tenant and namespace of the topics, as tenant/namespace",
					Value:       "public/default",
					EnvVar:      env("PULSAR_NAMESPACE"),
					Destination: &cfg.Pulsar.Namespace,
				},
			},
			Action: func(c *cli.Context) error {
				return runStream("pulsar")
			},
			HelpName: "datagen stream pulsar",
		},
		{
			Name: "nats",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "url",
					Usage:       "The NATS server URL",
					Value:       "nats://localhost:4222",
					EnvVar:      env("NATS_URL"),
					Destination: &cfg.Nats.Url,
				},
				cli.BoolFlag{
					Name:        "jetstream",
					Usage:       "Publish through JetStream",
					Destination: &cfg.Nats.JetStream,
				},
				cli.StringFlag{
					Name:        "stream",
					Usage:       "The JetStream stream to create for the subjects",
					Value:       "ACME",
					Destination: &cfg.Nats.Stream,
				},
				cli.StringFlag{
					Name:        "subject-prefix",
					Usage:       "Records are published to <prefix>.<entity>.<key>",
					Value:       "acme",
					EnvVar:      env("NATS_SUBJECT_PREFIX"),
					Destination: &cfg.Nats.SubjectPrefix,
				},
			},
			Action: func(c *cli.Context) error {
				return runStream("nats")
			},
			HelpName: "datagen stream nats",
		},
		{
			Name: "kinesis",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "region",
					Usage:       "The region where the Kinesis stream resides",
					Required:    true,
					EnvVar:      env("AWS_REGION"),
					Destination: &cfg.Kinesis.Region,
				},
				cli.StringFlag{
					Name:        "name",
					Usage:       "The Kinesis stream name",
					Required:    true,
					EnvVar:      env("KINESIS_STREAM"),
					Destination: &cfg.Kinesis.StreamName,
				},
				cli.IntFlag{
					Name:        "batch-size",
					Usage:       "Records per PutRecords call, at most 500",
					Value:       500,
					Destination: &cfg.Kinesis.BatchSize,
				},
			},
			Action: func(c *cli.Context) error {
				return runStream("kinesis")
			},
			HelpName: "datagen stream kinesis",
		},
		{
			Name: "firehose",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "region",
					Usage:       "The region where the delivery stream resides",
					Required:    true,
					EnvVar:      env("AWS_REGION"),
					Destination: &cfg.Firehose.Region,
				},
				cli.StringFlag{
					Name:        "name",
					Usage:       "The Firehose delivery stream name",
					Required:    true,
					EnvVar:      env("FIREHOSE_STREAM"),
					Destination: &cfg.Firehose.DeliveryStream,
				},
			},
			Action: func(c *cli.Context) error {
				return runStream("firehose")
			},
			HelpName: "datagen stream firehose",
		},
		{
			Name: "s3",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "region",
					Usage:       "The region of the bucket",
					Required:    true,
					EnvVar:      env("AWS_REGION"),
					Destination: &cfg.S3.Region,
				},
				cli.StringFlag{
					Name:        "bucket",
					Usage:       "The destination bucket",
					Required:    true,
					EnvVar:      env("S3_BUCKET"),
					Destination: &cfg.S3.Bucket,
				},
				cli.StringFlag{
					Name:        "prefix",
					Usage:       "Key prefix for the written objects",
					Value:       "stream",
					Destination: &cfg.S3.Prefix,
				},
				cli.IntFlag{
					Name:        "flush-every",
					Usage:       "Records buffered before objects are written",
					Value:       10000,
					Destination: &cfg.S3.FlushEvery,
				},
			},
			Action: func(c *cli.Context) error {
				return runStream("s3")
			},
			HelpName: "datagen stream s3",
		},
	}
}

func streamFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:        "print",
			Usage:       "Whether to print the content of every event",
			Required:    false,
			Destination: &cfg.PrintInsert,
		},
		cli.IntFlag{
			Name:        "qps",
			Usage:       "Number of messages to send per second",
			Required:    false,
			Value:       1,
			EnvVar:      env("QPS"),
			Destination: &cfg.Qps,
		},
		cli.Int64Flag{
			Name:        "total",
			Usage:       "Stop after sending this many records. 0 means no limit",
			EnvVar:      env("TOTAL"),
			Destination: &cfg.Total,
		},
		cli.StringFlag{
			Name:        "mode",
			Usage:       "telemetry | reference",
			Value:       "telemetry",
			EnvVar:      env("MODE"),
			Destination: &cfg.Mode,
		},
		cli.StringFlag{
			Name:        "format",
			Usage:       "The output record format: json | protobuf | avro. Used when the sink is a message queue.",
			Value:       "json",
			Required:    false,
			EnvVar:      env("FORMAT"),
			Destination: &cfg.Format,
		},
		cli.BoolFlag{
			Name:        "heavytail",
			Usage:       "Whether the tail probability is high. If true We will use uniform distribution for randomizing values.",
			Required:    false,
			Destination: &cfg.HeavyTail,
		},
		cli.Int64Flag{
			Name:        "seed",
			Usage:       "Seed of the reference set and event stream",
			Value:       42,
			EnvVar:      env("SEED"),
			Destination: &cfg.Seed,
		},
		cli.IntFlag{
			Name:        "customers",
			Usage:       "Number of customers in the reference set",
			Value:       10000,
			Destination: &cfg.NumCustomers,
		},
		cli.IntFlag{
			Name:        "titles",
			Usage:       "Number of titles in the reference set",
			Value:       1000,
			Destination: &cfg.NumTitles,
		},
		cli.IntFlag{
			Name:        "campaigns",
			Usage:       "Number of campaigns in the reference set",
			Value:       100,
			Destination: &cfg.NumCampaigns,
		},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:        "customers",
			Usage:       "Number of customers to generate",
			Value:       100000,
			EnvVar:      env("CUSTOMERS"),
			Destination: &batchCfg.NumCustomers,
		},
		cli.IntFlag{
			Name:        "titles",
			Usage:       "Number of titles to generate",
			Value:       10000,
			EnvVar:      env("TITLES"),
			Destination: &batchCfg.NumTitles,
		},
		cli.IntFlag{
			Name:        "telemetry",
			Usage:       "Number of telemetry events to generate",
			Value:       10000000,
			EnvVar:      env("TELEMETRY"),
			Destination: &batchCfg.NumTelemetryEvents,
		},
		cli.IntFlag{
			Name:        "campaigns",
			Usage:       "Number of ad campaigns to generate",
			Value:       500,
			EnvVar:      env("CAMPAIGNS"),
			Destination: &batchCfg.NumCampaigns,
		},
		cli.StringFlag{
			Name:        "output-dir",
			Usage:       "Output directory for generated data",
			Value:       "output",
			EnvVar:      env("OUTPUT_DIR"),
			Destination: &batchCfg.OutputDir,
		},
		cli.Int64Flag{
			Name:        "seed",
			Usage:       "Random seed for reproducibility",
			Value:       42,
			EnvVar:      env("SEED"),
			Destination: &batchCfg.Seed,
		},
		cli.IntFlag{
			Name:        "batch-size",
			Usage:       "Telemetry events held in memory per batch",
			Value:       batch.DefaultBatchSize,
			Destination: &batchCfg.BatchSize,
		},
		cli.IntFlag{
			Name:        "date-range-days",
			Usage:       "Days of telemetry before the reference date",
			Value:       batch.DefaultDateRangeDays,
			Destination: &batchCfg.DateRangeDays,
		},
		cli.StringFlag{
			Name:        "as-of",
			Usage:       "Reference date (YYYY-MM-DD) for generated dates. Defaults to today",
			EnvVar:      env("AS_OF"),
			Destination: &asOf,
		},
	}
}

func uploadFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:        "bucket",
			Usage:       "S3 bucket name",
			Required:    true,
			EnvVar:      env("S3_BUCKET"),
			Destination: &uploadCfg.Bucket,
		},
		cli.StringFlag{
			Name:        "local-dir",
			Usage:       "Local directory containing generated data",
			Value:       "output",
			EnvVar:      env("OUTPUT_DIR"),
			Destination: &uploadCfg.LocalDir,
		},
		cli.StringFlag{
			Name:        "s3-prefix",
			Usage:       "S3 prefix for uploaded files",
			Value:       upload.DefaultPrefix,
			Destination: &uploadCfg.Prefix,
		},
		cli.StringFlag{
			Name:        "region",
			Usage:       "AWS region",
			Value:       "us-east-1",
			EnvVar:      env("AWS_REGION"),
			Destination: &uploadCfg.Region,
		},
		cli.IntFlag{
			Name:        "workers",
			Usage:       "Files uploaded in parallel",
			Value:       upload.DefaultWorkers,
			Destination: &uploadCfg.Workers,
		},
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "datagen"
	app.Usage = "Synthetic data for the Acme video streaming analytics stack"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:        "verbose",
			Usage:       "Human-readable debug logging",
			EnvVar:      env("VERBOSE"),
			Destination: &verbose,
		},
	}
	app.Before = func(c *cli.Context) error {
		_, err := logging.Setup(verbose)
		return err
	}
	app.After = func(c *cli.Context) error {
		_ = zap.L().Sync()
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "batch",
			Usage: "Write customers, titles, telemetry and campaigns as Parquet",
			Flags: batchFlags(),
			Action: func(c *cli.Context) error {
				return runBatch()
			},
		},
		{
			Name:  "upload",
			Usage: "Upload a generated dataset to S3",
			Flags: uploadFlags(),
			Action: func(c *cli.Context) error {
				return runUpload()
			},
		},
		{
			Name:        "stream",
			Usage:       "Stream live telemetry or the reference set into a sink",
			Flags:       streamFlags(),
			Subcommands: streamCommands(),
		},
	}
	return app
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		zap.S().Fatal(err)
	}
}
