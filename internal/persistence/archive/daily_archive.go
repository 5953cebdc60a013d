package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"personalpage/internal/persistence/snapshot"
)

type DailyArchiveMeta struct {
	Day        string `json:"day"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
	PostsKey   string `json:"posts_key"`
	ProfileKey string `json:"profile_key"`
	PostsBytes int    `json:"posts_bytes"`
	HasProfile bool   `json:"has_profile"`
}

// ArchiveDailySnapshot copies the first backup of each UTC day into
// `backupDir/archives/day_<YYYY-MM-DD>/`. Later backups of the same day are
// left alone and return archived=false.
func ArchiveDailySnapshot(backupDir, snapshotPath string, b snapshot.Backup) (day string, archivedPath string, archived bool, err error) {
	created, err := time.Parse(time.RFC3339Nano, b.Header.CreatedAt)
	if err != nil {
		return "", "", false, fmt.Errorf("backup created_at: %w", err)
	}
	day = created.UTC().Format("2006-01-02")

	archiveDir := filepath.Join(backupDir, "archives", "day_"+day)
	metaPath := filepath.Join(archiveDir, "meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		return day, "", false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return day, "", false, err
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return day, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return day, "", false, err
	}

	meta := DailyArchiveMeta{
		Day:        day,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  b.Header.CreatedAt,
		PostsKey:   b.Header.PostsKey,
		ProfileKey: b.Header.ProfileKey,
		PostsBytes: len(b.Posts),
		HasProfile: b.Profile != nil,
	}
	mb, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return day, "", false, err
	}
	if err := os.WriteFile(metaPath, mb, 0o644); err != nil {
		return day, "", false, err
	}
	return day, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
