// Command seed loads department rows into the info table from a YAML seed
// file, the bundled sample, or an object in R2. With -upload it publishes
// a local seed file to R2 instead.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/abccollege/college-chatbot-go/internal/config"
	"github.com/abccollege/college-chatbot-go/internal/logger"
	"github.com/abccollege/college-chatbot-go/internal/r2client"
	"github.com/abccollege/college-chatbot-go/internal/seed"
	"github.com/abccollege/college-chatbot-go/internal/storage"
)

var (
	fileFlag   = flag.String("file", "", "Seed file path (default: COLLEGE_SEED_PATH)")
	sampleFlag = flag.Bool("sample", false, "Load the bundled sample departments")
	r2Flag     = flag.Bool("r2", false, "Download the seed object COLLEGE_R2_SEED_KEY from R2")
	uploadFlag = flag.Bool("upload", false, "Compress -file and upload it to R2, then exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadForMode(config.SeedMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel}).WithModule("seed")
	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("Seeding failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.SeedDownload)
	defer cancel()

	path := *fileFlag
	if path == "" {
		path = cfg.SeedPath
	}

	if *uploadFlag {
		return upload(ctx, cfg, log, path)
	}

	var (
		rows   []storage.CollegeInfo
		source string
		err    error
	)
	switch {
	case *sampleFlag:
		source = "sample"
		rows, err = seed.Sample()
	case *r2Flag:
		source = "r2:" + cfg.R2SeedKey
		var client *r2client.Client
		if client, err = newR2Client(ctx, cfg); err == nil {
			rows, err = seed.LoadObject(ctx, client, cfg.R2SeedKey)
		}
	default:
		source = path
		rows, err = seed.LoadFile(path)
	}
	if err != nil {
		return err
	}
	log.WithField("source", source).WithField("rows", len(rows)).Info("Seed loaded")

	db, err := storage.Open(ctx, storage.Options{
		Driver:       storage.Driver(cfg.DBDriver),
		DSN:          cfg.DatabaseDSN(),
		Table:        cfg.DBTable,
		AutoMigrate:  true,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { _ = db.Close() }()

	total, err := seed.Apply(ctx, db, rows)
	if err != nil {
		return err
	}
	log.WithField("table", cfg.DBTable).WithField("total_rows", total).Info("Seed applied")
	return nil
}

func upload(ctx context.Context, cfg *config.Config, log *logger.Logger, path string) error {
	if path == "" {
		return errors.New("-upload needs -file or COLLEGE_SEED_PATH")
	}
	if !strings.HasSuffix(cfg.R2SeedKey, seed.CompressedExt) {
		return fmt.Errorf("%s must end in %s; uploads are zstd-compressed", config.EnvR2SeedKey, seed.CompressedExt)
	}
	client, err := newR2Client(ctx, cfg)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	compressed := strings.HasSuffix(path, seed.CompressedExt)
	// Refuse to publish a file the server could not parse.
	if _, err := seed.Read(bytes.NewReader(raw), compressed); err != nil {
		return err
	}

	if !compressed {
		var buf bytes.Buffer
		if err := seed.Compress(&buf, bytes.NewReader(raw)); err != nil {
			return err
		}
		raw = buf.Bytes()
	}

	// A seekable body lets the SDK sign the payload.
	etag, err := client.Upload(ctx, cfg.R2SeedKey, bytes.NewReader(raw), "application/zstd")
	if err != nil {
		return fmt.Errorf("upload seed: %w", err)
	}
	log.WithField("key", cfg.R2SeedKey).WithField("etag", etag).Info("Seed uploaded")
	return nil
}

func newR2Client(ctx context.Context, cfg *config.Config) (*r2client.Client, error) {
	if !cfg.R2Enabled() {
		return nil, fmt.Errorf("%s is not set", config.EnvR2AccountID)
	}
	return r2client.New(ctx, r2client.Config{
		AccountID:   cfg.R2AccountID,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
}
