package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/refs"
)

func testAssembler(cfg Config) *Assembler {
	return New(cfg, zap.NewNop())
}

func TestAssembleRoundTrip(t *testing.T) {
	t.Parallel()

	a := testAssembler(Config{MaxEntries: 10, MaxBytes: 1 << 20, Deadline: time.Minute})
	entries := []refs.ArchiveEntry{
		{Name: "first.pdf", Content: []byte("%PDF-1.7 first")},
		{Name: "second.pdf", Content: []byte("%PDF-1.7 second")},
	}

	payload, err := a.Assemble(context.Background(), entries)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "first.pdf", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.7 first"), content)
}

func TestAssembleEmptyIsError(t *testing.T) {
	t.Parallel()

	a := testAssembler(Config{MaxEntries: 10, MaxBytes: 1 << 20})
	_, err := a.Assemble(context.Background(), nil)
	require.ErrorIs(t, err, refs.ErrNoEntries)
}

func TestAssembleEntryCeiling(t *testing.T) {
	t.Parallel()

	a := testAssembler(Config{MaxEntries: 1, MaxBytes: 1 << 20})
	entries := []refs.ArchiveEntry{
		{Name: "a.pdf", Content: []byte("a")},
		{Name: "b.pdf", Content: []byte("b")},
	}
	_, err := a.Assemble(context.Background(), entries)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ceiling")
}

func TestAssembleSizeCeiling(t *testing.T) {
	t.Parallel()

	a := testAssembler(Config{MaxEntries: 10, MaxBytes: 8})
	entries := []refs.ArchiveEntry{
		{Name: "a.pdf", Content: bytes.Repeat([]byte("x"), 6)},
		{Name: "b.pdf", Content: bytes.Repeat([]byte("y"), 6)},
	}
	_, err := a.Assemble(context.Background(), entries)
	require.ErrorIs(t, err, refs.ErrArchiveTooLarge)
}

func TestAssembleCanceledContext(t *testing.T) {
	t.Parallel()

	a := testAssembler(Config{MaxEntries: 10, MaxBytes: 1 << 20})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Assemble(ctx, []refs.ArchiveEntry{{Name: "a.pdf", Content: []byte("a")}})
	require.ErrorIs(t, err, refs.ErrArchiveTimeout)
}

func TestEntriesFromResults(t *testing.T) {
	t.Parallel()

	refA := refs.Reference{ID: 3, Title: "Gamma"}
	refB := refs.Reference{ID: 1, Title: "Alpha"}
	refC := refs.Reference{ID: 2, Title: "Beta"}

	results := []refs.JobResult{
		refs.Downloaded(refA, "gamma.pdf", []byte("g")),
		refs.Failed(refC, errors.New("unreachable")),
		refs.Downloaded(refB, "alpha.pdf", []byte("a")),
	}

	entries := EntriesFromResults(results)
	require.Len(t, entries, 2)
	// Failed results never become entries; survivors are ID-ordered.
	require.Equal(t, "alpha.pdf", entries[0].Name)
	require.Equal(t, "gamma.pdf", entries[1].Name)
}

func TestEntriesFromResultsResolvesCollisions(t *testing.T) {
	t.Parallel()

	first := refs.Reference{ID: 1, Title: "Paper"}
	second := refs.Reference{ID: 2, Title: "Paper"}

	results := []refs.JobResult{
		refs.Downloaded(first, "paper.pdf", []byte("1")),
		refs.Downloaded(second, "paper.pdf", []byte("2")),
	}

	entries := EntriesFromResults(results)
	require.Len(t, entries, 2)
	require.Equal(t, "paper.pdf", entries[0].Name)
	require.Equal(t, "2-paper.pdf", entries[1].Name)
}

func TestEntriesFromResultsCollisionWithPrefixedTitle(t *testing.T) {
	t.Parallel()

	// Reference 2's collision candidate "2-paper.pdf" is already claimed by
	// reference 1's title, so the prefix has to be applied again.
	results := []refs.JobResult{
		refs.Downloaded(refs.Reference{ID: 0, Title: "Paper"}, "paper.pdf", []byte("a")),
		refs.Downloaded(refs.Reference{ID: 1, Title: "2-Paper"}, "2-paper.pdf", []byte("b")),
		refs.Downloaded(refs.Reference{ID: 2, Title: "Paper"}, "paper.pdf", []byte("c")),
	}

	entries := EntriesFromResults(results)
	require.Len(t, entries, 3)
	require.Equal(t, "paper.pdf", entries[0].Name)
	require.Equal(t, "2-paper.pdf", entries[1].Name)
	require.Equal(t, "2-2-paper.pdf", entries[2].Name)

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		_, dup := seen[entry.Name]
		require.False(t, dup, "duplicate entry name %q", entry.Name)
		seen[entry.Name] = struct{}{}
	}
}
