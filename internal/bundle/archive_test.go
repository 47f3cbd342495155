package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArchive(t *testing.T) {
	var buf bytes.Buffer
	entries := []ArchiveEntry{
		{Name: "one.yml", Content: "a: 1\n"},
		{Name: "two.yml", Content: "b: 2\n"},
		{Name: "one.yml", Content: "c: 3\n"},
	}
	require.NoError(t, WriteArchive(&buf, entries, fixedTime))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	got := map[string]string{}
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		got[f.Name] = string(data)
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"one.yml", "two.yml", "one_2.yml"}, names)
	assert.Equal(t, "c: 3\n", got["one_2.yml"])
}

func TestDigest(t *testing.T) {
	a := Digest("resources: {}\n")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest("resources: {}\n"))
	assert.NotEqual(t, a, Digest("resources: []\n"))

	first := "# Generated on: 2024-01-01T00:00:00Z\n\nresources: {}\n"
	second := "# Generated on: 2024-06-01T00:00:00Z\n\nresources: {}\n"
	assert.Equal(t, Digest(first), Digest(second))
	assert.Equal(t, a, Digest(first))
}
