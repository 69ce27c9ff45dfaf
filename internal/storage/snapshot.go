// Package storage reads and writes the dated snapshot files that stages use
// to hand work to each other, plus the on-disk summary cache.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot file prefixes, one per stage output.
const (
	ScrapedPrefix  = "scraped_news_"
	SelectedPrefix = "selected_news_"
	RedactedPrefix = "redacted_news_"
	IssuePrefix    = "Newsletter_"
)

// ErrNoSnapshot is returned when a directory holds no snapshot to read.
var ErrNoSnapshot = errors.New("no snapshot found")

// DayStamp formats the date part of snapshot names.
func DayStamp(day time.Time) string {
	return day.Format("20060102")
}

// Latest returns the lexicographically greatest prefix*.json in dir. The
// date stamp in the name makes that the most recent one.
func Latest(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoSnapshot, dir)
		}
		return "", fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s (prefix %q)", ErrNoSnapshot, dir, prefix)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// ReadJSON decodes the snapshot at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadLatest combines Latest and ReadJSON and returns the path it read.
func ReadLatest(dir, prefix string, v any) (string, error) {
	path, err := Latest(dir, prefix)
	if err != nil {
		return "", err
	}
	return path, ReadJSON(path, v)
}

// WriteJSON writes v as <prefix>YYYYMMDD.json in dir. Non-ASCII text is
// written as is.
func WriteJSON(dir, prefix string, day time.Time, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	name := prefix + DayStamp(day) + ".json"
	return WriteFile(dir, name, buf.Bytes())
}

// WriteFile replaces dir/name with data. Readers see either the old file or
// the new one, never a partial write.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
