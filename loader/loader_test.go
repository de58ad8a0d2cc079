package loader

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/OdyseeTeam/fast-ledger/chain"
	"github.com/OdyseeTeam/fast-ledger/script"
	"github.com/OdyseeTeam/fast-ledger/storage"
	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*chain.Log, *storage.Store) {
	t.Helper()
	l, err := chain.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return l, s
}

func TestLoad(t *testing.T) {
	l, s := setup(t)

	var txs []transaction.Transaction
	for i := 0; i < 20; i++ {
		tx := transaction.New(uint64(i))
		_, err := l.Append(tx)
		require.NoError(t, err)
		txs = append(txs, tx)
	}
	bad := transaction.NewWithScripts(0, 0, script.New().Push(99, nil), script.New())
	_, err := l.Append(bad)
	require.NoError(t, err)
	txs = append(txs, bad)

	var out bytes.Buffer
	res, err := Load(context.Background(), l, s, Options{Workers: 3, Execute: true, Output: &out})
	require.NoError(t, err)
	assert.Equal(t, Result{Loaded: 21, Failed: 1}, res)
	assert.Equal(t, 20, strings.Count(out.String(), "OpEcho !!!\n"))

	all, err := s.All()
	require.NoError(t, err)
	assert.Equal(t, transaction.RootHash(txs), transaction.RootHash(all))

	rows, err := s.Query(`SELECT hash FROM transactions WHERE executed = false`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bad.Hash().String(), rows[0]["hash"])
}

func TestLoadWithoutExecute(t *testing.T) {
	l, s := setup(t)
	for i := 0; i < 5; i++ {
		_, err := l.Append(transaction.New(uint64(i)))
		require.NoError(t, err)
	}

	var out bytes.Buffer
	res, err := Load(context.Background(), l, s, Options{MaxHeight: 2, Output: &out})
	require.NoError(t, err)
	assert.Equal(t, Result{Loaded: 3}, res)
	assert.Empty(t, out.String())
}

func TestLoadCancelled(t *testing.T) {
	l, s := setup(t)
	_, err := l.Append(transaction.New(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(ctx, l, s, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}
