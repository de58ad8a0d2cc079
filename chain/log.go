package chain

import (
	"encoding/binary"
	"sync"

	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// key layout:
//
//	t<height:8 BE>  -> canonical transaction image
//	h<hash:32>      -> height:8 BE
//	mheight         -> number of transactions in the log
const (
	txPrefix   = 't'
	hashPrefix = 'h'
)

var heightKey = []byte("mheight")

var (
	ErrNotFound  = errors.New("transaction not found")
	ErrDuplicate = errors.New("transaction already in log")
)

// Log is an append-only, height-ordered transaction log.
type Log struct {
	mu     sync.Mutex
	db     *leveldb.DB
	height uint64
}

// Open opens (or creates) the log stored in dir.
func Open(dir string) (*Log, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log %s", dir)
	}
	return newLog(db)
}

// OpenMem opens a log that lives only in memory.
func OpenMem() (*Log, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening memory log")
	}
	return newLog(db)
}

func newLog(db *leveldb.DB) (*Log, error) {
	l := &Log{db: db}

	v, err := db.Get(heightKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, errors.Wrap(err, "reading log height")
	case len(v) != 8:
		db.Close()
		return nil, errors.Newf("corrupt log height (%d bytes)", len(v))
	default:
		l.height = binary.BigEndian.Uint64(v)
	}

	logrus.Debugf("log opened at height %d", l.height)
	return l, nil
}

func (l *Log) Close() error {
	return errors.Wrap(l.db.Close(), "closing log")
}

// Height is the number of transactions appended so far.
func (l *Log) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Append stores tx at the next height and returns that height.
func (l *Log) Append(tx transaction.Transaction) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hash := tx.Hash()
	exists, err := l.db.Has(hashKey(hash), nil)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	if exists {
		return 0, errors.Wrapf(ErrDuplicate, "%s", hash)
	}

	height := l.height
	batch := new(leveldb.Batch)
	batch.Put(txKey(height), tx.Encode())
	batch.Put(hashKey(hash), uint64Bytes(height))
	batch.Put(heightKey, uint64Bytes(height+1))

	err = l.db.Write(batch, nil)
	if err != nil {
		return 0, errors.Wrap(err, "writing transaction")
	}
	l.height++

	logrus.Debugf("appended %s at height %d", hash, height)
	return height, nil
}

// Get looks a transaction up by hash.
func (l *Log) Get(hash transaction.Hash) (transaction.Transaction, uint64, error) {
	v, err := l.db.Get(hashKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return transaction.Transaction{}, 0, errors.Wrapf(ErrNotFound, "%s", hash)
	} else if err != nil {
		return transaction.Transaction{}, 0, errors.Wrap(err, "")
	}

	height := binary.BigEndian.Uint64(v)
	tx, err := l.At(height)
	return tx, height, err
}

// At returns the transaction stored at height.
func (l *Log) At(height uint64) (transaction.Transaction, error) {
	raw, err := l.db.Get(txKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return transaction.Transaction{}, errors.Wrapf(ErrNotFound, "height %d", height)
	} else if err != nil {
		return transaction.Transaction{}, errors.Wrap(err, "")
	}
	tx, err := transaction.Decode(raw)
	return tx, errors.Wrapf(err, "height %d", height)
}

// Iterate calls fn with the raw image of every transaction in height order,
// stopping at the first error fn returns.
func (l *Log) Iterate(fn func(height uint64, raw []byte) error) error {
	iter := l.db.NewIterator(util.BytesPrefix([]byte{txPrefix}), nil)
	defer iter.Release()

	for iter.Next() {
		// the iterator owns Key and Value until the next call to Next
		height := binary.BigEndian.Uint64(iter.Key()[1:])
		raw := append([]byte{}, iter.Value()...)
		if err := fn(height, raw); err != nil {
			return err
		}
	}
	return errors.Wrap(iter.Error(), "iterating log")
}

// Transactions returns the whole log in height order.
func (l *Log) Transactions() ([]transaction.Transaction, error) {
	var txs []transaction.Transaction
	err := l.Iterate(func(height uint64, raw []byte) error {
		tx, err := transaction.Decode(raw)
		if err != nil {
			return errors.Wrapf(err, "height %d", height)
		}
		txs = append(txs, tx)
		return nil
	})
	return txs, err
}

// Root is transaction.RootHash over the whole log.
func (l *Log) Root() (transaction.Hash, error) {
	txs, err := l.Transactions()
	if err != nil {
		return transaction.Hash{}, err
	}
	return transaction.RootHash(txs), nil
}

func txKey(height uint64) []byte {
	k := make([]byte, 9)
	k[0] = txPrefix
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}

func hashKey(hash transaction.Hash) []byte {
	return append([]byte{hashPrefix}, hash[:]...)
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
