package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recon-report/internal/export"
)

func TestFileSink_Deliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(dir, nil)

	artifact := &export.Artifact{Filename: "ReconReport_Acme.csv", Data: []byte("Type,Date\n")}
	require.NoError(t, sink.Deliver(context.Background(), artifact))

	assert.Equal(t, filepath.Join(dir, "ReconReport_Acme.csv"), sink.Written)
	data, err := os.ReadFile(sink.Written)
	require.NoError(t, err)
	assert.Equal(t, artifact.Data, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFileSink_DeliverCancelled(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Deliver(ctx, &export.Artifact{Filename: "x.csv", Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
