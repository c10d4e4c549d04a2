// Package state persists the durable queue of wallets with remaining churn
// rounds: one record per line as "name;address;roundsRemaining". It is the
// single source of truth for what work is left after a crash or restart.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/walletops/churnd/pkg/logger"
	"github.com/walletops/churnd/pkg/wallet"
)

// ErrNoActionable signals that every record has zero rounds remaining. The
// caller mints a new session; this is not a failure.
var ErrNoActionable = errors.New("no wallet with rounds remaining")

// Store owns the durable churn queue. All mutations go through it and every
// write is a whole-file rewrite published atomically, so a crash mid-update
// leaves the previous consistent state intact.
type Store struct {
	path    string
	records []wallet.Record
}

// Open loads the state file at path. A missing file yields an empty state;
// blank and malformed lines are dropped.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		rec, ok := parseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				logger.WarnCF("state", "Dropping malformed state line", map[string]any{
					"file": path,
					"line": i + 1,
				})
			}
			continue
		}
		s.records = append(s.records, rec)
	}
	return s, nil
}

func parseLine(line string) (wallet.Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return wallet.Record{}, false
	}
	fields := strings.Split(line, ";")
	if len(fields) != 3 {
		return wallet.Record{}, false
	}
	rounds, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || rounds < 0 {
		return wallet.Record{}, false
	}
	return wallet.Record{
		Name:            strings.TrimSpace(fields[0]),
		Address:         strings.TrimSpace(fields[1]),
		RoundsRemaining: rounds,
		CreationHeight:  wallet.HeightUnknown,
	}, true
}

func formatLine(rec wallet.Record) string {
	return fmt.Sprintf("%s;%s;%d", rec.Name, rec.Address, rec.RoundsRemaining)
}

// Records returns a copy of the queue in stored order.
func (s *Store) Records() []wallet.Record {
	out := make([]wallet.Record, len(s.records))
	copy(out, s.records)
	return out
}

// NextActionable returns the first record, in insertion order, with rounds
// remaining, or ErrNoActionable when every record is exhausted.
func (s *Store) NextActionable() (wallet.Record, error) {
	for _, rec := range s.records {
		if rec.RoundsRemaining > 0 {
			return rec, nil
		}
	}
	return wallet.Record{}, ErrNoActionable
}

// Lookup finds a record by wallet name.
func (s *Store) Lookup(name string) (wallet.Record, bool) {
	for _, rec := range s.records {
		if rec.Name == name {
			return rec, true
		}
	}
	return wallet.Record{}, false
}

// Append adds rec to the end of the queue and persists.
func (s *Store) Append(rec wallet.Record) error {
	s.records = append(s.records, rec)
	return s.write()
}

// RecordRoundCompleted decrements the named record's remaining rounds,
// clamped at zero, and persists before returning.
func (s *Store) RecordRoundCompleted(name string) error {
	for i := range s.records {
		if s.records[i].Name != name {
			continue
		}
		if s.records[i].RoundsRemaining > 0 {
			s.records[i].RoundsRemaining--
		}
		return s.write()
	}
	return fmt.Errorf("state: no record named %s", name)
}

// write publishes the whole queue: write to a temp file in the same
// directory, sync, then rename over the old file.
func (s *Store) write() error {
	lines := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		lines = append(lines, formatLine(rec))
	}
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
