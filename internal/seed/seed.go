// Package seed loads college info rows from YAML seed files, optionally
// zstd-compressed, from disk or R2, and writes them to the info store.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/abccollege/college-chatbot-go/internal/intent"
	"github.com/abccollege/college-chatbot-go/internal/storage"
)

//go:embed sample.yaml
var sample []byte

// CompressedExt marks zstd-compressed seed files.
const CompressedExt = ".zst"

type file struct {
	Departments []department `yaml:"departments"`
}

type department struct {
	Name                string `yaml:"name"`
	FeesStructure       *int64 `yaml:"fees_structure"`
	EligibilityCriteria string `yaml:"eligibility_criteria"`
	Scholarships        string `yaml:"scholarships"`
}

// Downloader fetches seed objects.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Sample returns the bundled development data.
func Sample() ([]storage.CollegeInfo, error) {
	return Parse(bytes.NewReader(sample))
}

// Parse decodes a YAML seed document.
func Parse(r io.Reader) ([]storage.CollegeInfo, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	rows := make([]storage.CollegeInfo, 0, len(f.Departments))
	seen := make(map[string]bool, len(f.Departments))
	var errs []error
	for i, d := range f.Departments {
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("department %d: name is required", i))
			continue
		case seen[name]:
			errs = append(errs, fmt.Errorf("department %q: duplicate name", name))
			continue
		}
		seen[name] = true

		row := storage.CollegeInfo{
			Name:                name,
			EligibilityCriteria: d.EligibilityCriteria,
			Scholarships:        d.Scholarships,
		}
		if d.FeesStructure != nil {
			row.FeesStructure = sql.NullInt64{Int64: *d.FeesStructure, Valid: true}
		}
		rows = append(rows, row)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Read parses r, decompressing it first when compressed is set.
func Read(r io.Reader, compressed bool) ([]storage.CollegeInfo, error) {
	if !compressed {
		return Parse(r)
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()
	return Parse(dec)
}

// LoadFile reads a seed file; names ending in .zst are decompressed.
func LoadFile(path string) ([]storage.CollegeInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Read(f, strings.HasSuffix(path, CompressedExt))
}

// LoadObject downloads and reads a seed object.
func LoadObject(ctx context.Context, d Downloader, key string) ([]storage.CollegeInfo, error) {
	body, etag, err := d.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download seed %q: %w", key, err)
	}
	defer body.Close()

	rows, err := Read(body, strings.HasSuffix(key, CompressedExt))
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "seed object loaded", "key", key, "etag", etag, "rows", len(rows))
	return rows, nil
}

// Compress writes src to dst as zstd.
func Compress(dst io.Writer, src io.Reader) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress seed: %w", err)
	}
	return enc.Close()
}

// Apply upserts rows and returns the resulting row count. Rows whose name
// is not a known department code are still written; a warning is logged.
func Apply(ctx context.Context, w storage.InfoWriter, rows []storage.CollegeInfo) (int, error) {
	known := make(map[string]bool)
	for _, d := range intent.Departments() {
		known[string(d)] = true
	}
	for _, r := range rows {
		if !known[r.Name] {
			slog.WarnContext(ctx, "seed row is not a known department; the classifier will never select it",
				"name", r.Name)
		}
	}

	if err := w.SaveInfoRecords(ctx, rows); err != nil {
		return 0, fmt.Errorf("save seed rows: %w", err)
	}
	n, err := w.CountInfoRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("count info rows: %w", err)
	}
	return n, nil
}
