package seed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abccollege/college-chatbot-go/internal/intent"
	"github.com/abccollege/college-chatbot-go/internal/storage"
)

const doc = `
departments:
  - name: CSE
    fees_structure: 85000
    eligibility_criteria: JEE
    scholarships: Merit
  - name: " AI "
    eligibility_criteria: ""
`

func TestParse(t *testing.T) {
	t.Parallel()
	rows, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "CSE", rows[0].Name)
	assert.True(t, rows[0].FeesStructure.Valid)
	assert.Equal(t, int64(85000), rows[0].FeesStructure.Int64)
	assert.Equal(t, "JEE", rows[0].EligibilityCriteria)

	assert.Equal(t, "AI", rows[1].Name)
	assert.False(t, rows[1].FeesStructure.Valid, "missing fee is NULL")
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"not yaml":      "departments: [",
		"unknown field": "departments:\n  - name: CSE\n    fee: 1\n",
		"missing name":  "departments:\n  - fees_structure: 1\n",
		"duplicate":     "departments:\n  - name: CSE\n  - name: CSE\n",
		"bad fee":       "departments:\n  - name: CSE\n    fees_structure: lots\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestSample(t *testing.T) {
	t.Parallel()
	rows, err := Sample()
	require.NoError(t, err)

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
		assert.True(t, r.FeesStructure.Valid, r.Name)
	}
	want := make([]string, 0)
	for _, d := range intent.Departments() {
		want = append(want, string(d))
	}
	assert.ElementsMatch(t, want, names, "sample covers every department")
}

func TestLoadFile_Compressed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	plain := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(plain, []byte(doc), 0o600))

	var buf bytes.Buffer
	require.NoError(t, Compress(&buf, strings.NewReader(doc)))
	zst := filepath.Join(dir, "seed.yaml.zst")
	require.NoError(t, os.WriteFile(zst, buf.Bytes(), 0o600))

	a, err := LoadFile(plain)
	require.NoError(t, err)
	b, err := LoadFile(zst)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	// A plain file with a .zst name is not valid zstd.
	bad := filepath.Join(dir, "bad.zst")
	require.NoError(t, os.WriteFile(bad, []byte(doc), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

type fakeDownloader struct {
	objects map[string][]byte
}

func (f fakeDownloader) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), "etag", nil
}

func TestLoadObject(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Compress(&buf, strings.NewReader(doc)))
	d := fakeDownloader{objects: map[string][]byte{"seed/a.yaml.zst": buf.Bytes()}}

	rows, err := LoadObject(context.Background(), d, "seed/a.yaml.zst")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = LoadObject(context.Background(), d, "seed/missing.yaml")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := storage.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := Sample()
	require.NoError(t, err)

	n, err := Apply(ctx, db, rows)
	require.NoError(t, err)
	assert.Equal(t, len(rows), n)

	// Re-applying upserts instead of duplicating.
	n, err = Apply(ctx, db, rows)
	require.NoError(t, err)
	assert.Equal(t, len(rows), n)

	records, err := db.FindInfo(ctx, intent.IntentFees, intent.DepartmentCSE)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "85000", records[0].Value)
}
