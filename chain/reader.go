package chain

import (
	"sync"

	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

type record struct {
	height uint64
	raw    []byte
}

type Reader struct {
	Workers   int    // how many goroutines decode transactions in parallel
	MaxHeight uint64 // stop after this height. 0 = no limit

	log  *Log
	onTx func(height uint64, tx transaction.Transaction) error
}

func NewReader(l *Log) *Reader {
	return &Reader{
		Workers: 1,
		log:     l,
	}
}

// OnTransaction sets the callback Load hands every decoded transaction to.
// With more than one worker the callback runs concurrently and transactions
// arrive out of height order.
func (c *Reader) OnTransaction(fn func(height uint64, tx transaction.Transaction) error) {
	c.onTx = fn
}

func (c *Reader) notify(height uint64, tx transaction.Transaction) error {
	if c.onTx != nil {
		return c.onTx(height, tx)
	}
	return nil
}

// Load reads the log and passes each transaction to the OnTransaction
// callback. It returns the first decode or callback error; the remaining
// records are drained without being decoded.
func (c *Reader) Load() error {
	recordChan := make(chan record)

	if c.Workers < 1 {
		// could happen if you initialize an empty struct and forget to set this
		c.Workers = 1
	}
	logrus.Infof("running %d workers", c.Workers)

	var (
		errMu    sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	failed := func() bool {
		errMu.Lock()
		defer errMu.Unlock()
		return firstErr != nil
	}

	wg := &sync.WaitGroup{}
	wg.Add(c.Workers)
	for i := 0; i < c.Workers; i++ {
		go func(i int) {
			defer wg.Done()
			c.worker(i, recordChan, setErr, failed)
		}(i)
	}

	iterErr := c.log.Iterate(func(height uint64, raw []byte) error {
		if c.MaxHeight > 0 && height > c.MaxHeight {
			return errStop
		}
		recordChan <- record{height: height, raw: raw}
		return nil
	})

	close(recordChan)
	wg.Wait()

	if iterErr != nil && !errors.Is(iterErr, errStop) {
		return iterErr
	}
	return firstErr
}

var errStop = errors.New("stop iteration")

func (c *Reader) worker(workerNum int, records <-chan record, setErr func(error), failed func() bool) {
	for rec := range records {
		if failed() {
			continue
		}

		tx, err := transaction.Decode(rec.raw)
		if err != nil {
			setErr(errors.Wrapf(err, "height %d", rec.height))
			continue
		}

		if rec.height%10000 == 0 {
			logrus.Infof("Worker %d: height %dk", workerNum, rec.height/1000)
		}

		err = c.notify(rec.height, tx)
		if err != nil {
			setErr(errors.Wrapf(err, "height %d", rec.height))
		}
	}
}
