// Package loader replays the transaction log into the query store.
package loader

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/OdyseeTeam/fast-ledger/chain"
	"github.com/OdyseeTeam/fast-ledger/storage"
	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Workers   int
	MaxHeight uint64 // 0 = load it all
	// Execute runs every transaction before storing it and records whether
	// it succeeded.
	Execute bool
	// Output receives OpEcho lines when Execute is set. Defaults to stdout.
	Output io.Writer
}

// Result summarizes a Load.
type Result struct {
	Loaded int
	Failed int // transactions whose execution failed
}

// Load reads every transaction from log and stores it in store, stopping at
// the first storage error or when ctx is done.
func Load(ctx context.Context, log *chain.Log, store *storage.Store, opts Options) (Result, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	interp := transaction.NewInterpreter(&lockedWriter{w: out})

	reader := chain.NewReader(log)
	reader.Workers = opts.Workers
	reader.MaxHeight = opts.MaxHeight

	results := make(chan bool)
	done := make(chan Result)
	go func() {
		var r Result
		for ok := range results {
			r.Loaded++
			if !ok {
				r.Failed++
			}
		}
		done <- r
	}()

	reader.OnTransaction(func(height uint64, tx transaction.Transaction) error {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		executed := false
		if opts.Execute {
			err := tx.ExecuteWith(interp)
			if err != nil {
				logrus.Errorf("height %d: %s failed to execute: %v", height, tx.Hash(), err)
			}
			executed = err == nil
		}

		err := store.Put(height, tx, executed)
		if err != nil {
			return err
		}
		results <- !opts.Execute || executed
		return nil
	})

	err := reader.Load()
	close(results)
	res := <-done

	if err != nil {
		return res, err
	}
	logrus.Infof("loaded %d transactions (%d failed execution)", res.Loaded, res.Failed)
	return res, nil
}

// lockedWriter serializes writes from concurrent workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
