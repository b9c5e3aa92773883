package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/session"
)

// ChecksPrefix is the directory all check records live under.
const ChecksPrefix = "checks"

// Open builds the storage backend selected by cfg.
func Open(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "localfs", "":
		fs, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		store, err := NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", cfg.Type))
	}
}

// CheckArchive stores settled checks as one JSON document each.
// Records are keyed checks/YYYY/MM/DD/<unix-nanos>-<id>.json so a
// lexical sort of keys is a chronological sort.
type CheckArchive struct {
	store Storage
}

// NewCheckArchive wraps a storage backend.
func NewCheckArchive(store Storage) *CheckArchive {
	return &CheckArchive{store: store}
}

// Archive implements session.Archiver.
func (a *CheckArchive) Archive(ctx context.Context, c session.Check) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	if err := a.store.Write(ctx, checkPath(c), data); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	return nil
}

// Recent returns up to limit checks, newest first. limit <= 0 returns all.
func (a *CheckArchive) Recent(ctx context.Context, limit int) ([]session.Check, error) {
	paths, err := a.store.List(ctx, ChecksPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing checks: %w", err)
	}

	keys := paths[:0]
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			keys = append(keys, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	checks := make([]session.Check, 0, len(keys))
	for _, k := range keys {
		data, err := a.store.Read(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", k, err)
		}
		var c session.Check
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", k, err)
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func checkPath(c session.Check) string {
	t := c.FinishedAt.UTC()
	return path.Join(ChecksPrefix,
		t.Format("2006"), t.Format("01"), t.Format("02"),
		fmt.Sprintf("%019d-%s.json", t.UnixNano(), c.ID),
	)
}
