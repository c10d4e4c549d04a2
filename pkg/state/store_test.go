package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walletops/churnd/pkg/wallet"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.txt")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, _ := tempStore(t)
	require.Empty(t, s.Records())

	_, err := s.NextActionable()
	require.ErrorIs(t, err, ErrNoActionable)
}

func TestOpen_DropsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.txt")
	content := "w1;addr1;3\n\ngarbage line\nw2;addr2;-1\nw2;addr2;x\nw3;addr3;0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	require.Len(t, s.Records(), 2)
	require.Equal(t, "w1", s.Records()[0].Name)
	require.Equal(t, "w3", s.Records()[1].Name)
}

func TestAppendPersists(t *testing.T) {
	s, path := tempStore(t)
	require.NoError(t, s.Append(wallet.Record{Name: "w1", Address: "addr1", RoundsRemaining: 5}))

	reloaded, err := Open(path)
	require.NoError(t, err)
	require.Len(t, reloaded.Records(), 1)
	require.Equal(t, 5, reloaded.Records()[0].RoundsRemaining)
	require.Equal(t, "addr1", reloaded.Records()[0].Address)
}

func TestNextActionable_InsertionOrder(t *testing.T) {
	s, _ := tempStore(t)
	require.NoError(t, s.Append(wallet.Record{Name: "w1", Address: "a1", RoundsRemaining: 0}))
	require.NoError(t, s.Append(wallet.Record{Name: "w2", Address: "a2", RoundsRemaining: 2}))
	require.NoError(t, s.Append(wallet.Record{Name: "w3", Address: "a3", RoundsRemaining: 7}))

	rec, err := s.NextActionable()
	require.NoError(t, err)
	require.Equal(t, "w2", rec.Name)
}

func TestNextActionable_NotFoundIffAllExhausted(t *testing.T) {
	s, _ := tempStore(t)
	require.NoError(t, s.Append(wallet.Record{Name: "w1", Address: "a1", RoundsRemaining: 1}))
	require.NoError(t, s.Append(wallet.Record{Name: "w2", Address: "a2", RoundsRemaining: 1}))

	require.NoError(t, s.RecordRoundCompleted("w1"))
	_, err := s.NextActionable()
	require.NoError(t, err, "w2 still has rounds")

	require.NoError(t, s.RecordRoundCompleted("w2"))
	_, err = s.NextActionable()
	require.ErrorIs(t, err, ErrNoActionable)
}

// A restart right after RecordRoundCompleted must observe the decrement
// exactly once: not zero times, not twice.
func TestRecordRoundCompleted_DurableExactlyOnce(t *testing.T) {
	s, path := tempStore(t)
	require.NoError(t, s.Append(wallet.Record{Name: "w1", Address: "a1", RoundsRemaining: 5}))
	require.NoError(t, s.RecordRoundCompleted("w1"))

	reloaded, err := Open(path)
	require.NoError(t, err)
	rec, ok := reloaded.Lookup("w1")
	require.True(t, ok)
	require.Equal(t, 4, rec.RoundsRemaining)
}

func TestRecordRoundCompleted_ClampsAtZero(t *testing.T) {
	s, _ := tempStore(t)
	require.NoError(t, s.Append(wallet.Record{Name: "w1", Address: "a1", RoundsRemaining: 1}))

	require.NoError(t, s.RecordRoundCompleted("w1"))
	require.NoError(t, s.RecordRoundCompleted("w1"))

	rec, ok := s.Lookup("w1")
	require.True(t, ok)
	require.Zero(t, rec.RoundsRemaining)
}

func TestRecordRoundCompleted_UnknownWallet(t *testing.T) {
	s, _ := tempStore(t)
	require.Error(t, s.RecordRoundCompleted("nope"))
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	s, path := tempStore(t)
	require.NoError(t, s.Append(wallet.Record{Name: "w1", Address: "a1", RoundsRemaining: 1}))
	require.NoError(t, s.RecordRoundCompleted("w1"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, filepath.Base(path), entries[0].Name())
}
