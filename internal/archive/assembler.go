// Package archive packs downloaded documents into a ZIP under size and time
// ceilings.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/metrics"
	"github.com/refbundle/refbundle/internal/refs"
)

// Config sets the assembly ceilings.
type Config struct {
	MaxEntries int
	MaxBytes   int64
	Deadline   time.Duration
}

// Assembler builds archives from successful job results. Assembly failures
// never invalidate the per-item report computed upstream.
type Assembler struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs an Assembler.
func New(cfg Config, logger *zap.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		logger: logger,
	}
}

// EntriesFromResults projects the downloaded results into archive entries,
// ordered by reference ID so the entry set is deterministic regardless of
// result arrival order. Name collisions after sanitization are resolved by
// prefixing the reference ID.
func EntriesFromResults(results []refs.JobResult) []refs.ArchiveEntry {
	downloaded := make([]refs.JobResult, 0, len(results))
	for _, res := range results {
		if _, ok := res.Output(); ok {
			downloaded = append(downloaded, res)
		}
	}
	sort.Slice(downloaded, func(i, j int) bool {
		return downloaded[i].Reference().ID < downloaded[j].Reference().ID
	})

	entries := make([]refs.ArchiveEntry, 0, len(downloaded))
	seen := make(map[string]struct{}, len(downloaded))
	for _, res := range downloaded {
		name := res.OutputName()
		if name == "" {
			name = refs.OutputFileName(res.Reference())
		}
		// A title may itself look like an id-prefixed name, so keep prefixing
		// until the candidate is actually free.
		for {
			if _, taken := seen[name]; !taken {
				break
			}
			name = fmt.Sprintf("%d-%s", res.Reference().ID, name)
		}
		seen[name] = struct{}{}
		content, _ := res.Output()
		entries = append(entries, refs.ArchiveEntry{Name: name, Content: content})
	}
	return entries
}

// Assemble compresses the entries into a single ZIP payload. An empty entry
// set is a hard error, not an empty archive.
func (a *Assembler) Assemble(ctx context.Context, entries []refs.ArchiveEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, refs.ErrNoEntries
	}
	if a.cfg.MaxEntries > 0 && len(entries) > a.cfg.MaxEntries {
		return nil, fmt.Errorf("%d entries exceed the archive ceiling of %d", len(entries), a.cfg.MaxEntries)
	}
	if a.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Deadline)
		defer cancel()
	}

	var (
		buf   bytes.Buffer
		total int64
	)
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", refs.ErrArchiveTimeout, err)
		}
		total += int64(len(entry.Content))
		if a.cfg.MaxBytes > 0 && total > a.cfg.MaxBytes {
			return nil, fmt.Errorf("%w: %d bytes over the %d byte ceiling", refs.ErrArchiveTooLarge, total, a.cfg.MaxBytes)
		}
		w, err := zw.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %q: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Content); err != nil {
			return nil, fmt.Errorf("write archive entry %q: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	a.logger.Info("archive assembled",
		zap.Int("entries", len(entries)),
		zap.Int("bytes", buf.Len()),
	)
	metrics.ObserveArchiveSize(buf.Len())
	return buf.Bytes(), nil
}
