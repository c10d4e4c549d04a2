// Package seed reads and writes the line-oriented credential log: one wallet
// record per line as "mnemonic: ...; password: ...; creation_height: ...;
// wallet_name: ...", or a bare mnemonic on its own line.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/walletops/churnd/pkg/wallet"
)

// ErrMalformedSeed is returned for a non-blank line carrying no mnemonic.
var ErrMalformedSeed = errors.New("malformed seed record")

// HeightSource answers current-chain-height queries. *rpc.DaemonClient
// satisfies it.
type HeightSource interface {
	Height(ctx context.Context) (uint64, error)
}

// Store is an append-only log of wallet credentials. Line order defines the
// restore sequence in seed-driven mode.
type Store struct {
	path            string
	defaultPassword string
	heights         HeightSource
	offset          uint64
}

func NewStore(path, defaultPassword string, heights HeightSource, restoreHeightOffset uint64) *Store {
	return &Store{
		path:            path,
		defaultPassword: defaultPassword,
		heights:         heights,
		offset:          restoreHeightOffset,
	}
}

// ParseRecord parses one seed line. A line with no semicolon-delimited
// fields is a bare mnemonic using the store's default password and an unset
// creation height.
func (s *Store) ParseRecord(line string) (wallet.Record, error) {
	return ParseRecord(line, s.defaultPassword)
}

// ParseRecord parses one seed line with an explicit default password.
func ParseRecord(line, defaultPassword string) (wallet.Record, error) {
	rec := wallet.Record{
		Password:       defaultPassword,
		CreationHeight: wallet.HeightUnknown,
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return wallet.Record{}, fmt.Errorf("%w: blank line", ErrMalformedSeed)
	}

	if !strings.Contains(line, ":") {
		rec.Mnemonic = line
		return rec, nil
	}

	var haveMnemonic bool
	for _, field := range strings.Split(line, ";") {
		key, value, found := strings.Cut(field, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "mnemonic":
			rec.Mnemonic = value
			haveMnemonic = value != ""
		case "password":
			rec.Password = value
		case "creation_height":
			height, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return wallet.Record{}, fmt.Errorf("%w: bad creation_height %q", ErrMalformedSeed, value)
			}
			rec.CreationHeight = int64(height)
		case "wallet_name":
			rec.Name = value
		}
	}

	if !haveMnemonic {
		return wallet.Record{}, fmt.Errorf("%w: no mnemonic field", ErrMalformedSeed)
	}
	return rec, nil
}

// FormatRecord writes the canonical line for rec. A full record round-trips
// byte-for-byte through ParseRecord and back.
func FormatRecord(rec wallet.Record) string {
	fields := []string{"mnemonic: " + rec.Mnemonic}
	if rec.Password != "" {
		fields = append(fields, "password: "+rec.Password)
	}
	if rec.HasHeight() {
		fields = append(fields, fmt.Sprintf("creation_height: %d", rec.CreationHeight))
	}
	if rec.Name != "" {
		fields = append(fields, "wallet_name: "+rec.Name)
	}
	return strings.Join(fields, "; ")
}

// Records returns every record in the file, in order. Blank lines are
// skipped; a malformed line is a configuration error.
func (s *Store) Records() ([]wallet.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var records []wallet.Record
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := s.ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("seed file %s line %d: %w", s.path, i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append adds rec to the end of the log, creating the file if needed.
func (s *Store) Append(rec wallet.Record) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(FormatRecord(rec) + "\n"); err != nil {
		return err
	}
	return f.Sync()
}

// ResolveRestoreHeight returns rec's creation height verbatim when recorded.
// Otherwise it derives one from the daemon's height at this moment, minus
// the configured offset, so the restore scan starts at or before the
// wallet's first-received block.
func (s *Store) ResolveRestoreHeight(ctx context.Context, rec wallet.Record) (uint64, error) {
	if rec.HasHeight() {
		return uint64(rec.CreationHeight), nil
	}

	height, err := s.heights.Height(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying daemon height: %w", err)
	}
	if height < s.offset {
		return 0, nil
	}
	return height - s.offset, nil
}
