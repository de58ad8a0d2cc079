// Package storage keeps a queryable copy of ledger transactions in a genji
// document database.
package storage

import (
	"strconv"

	"github.com/OdyseeTeam/fast-ledger/script"
	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/genjidb/genji"
	"github.com/genjidb/genji/document"
	"github.com/genjidb/genji/types"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("transaction not stored")

// Timestamps are stored as decimal TEXT because genji integers are signed
// 64-bit and a timestamp may use the full uint64 range.
const schema = `CREATE TABLE IF NOT EXISTS transactions (
	hash TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	tx_version INTEGER NOT NULL,
	tx_timestamp TEXT NOT NULL,
	executed_data BLOB,
	condition_data BLOB,
	script_id TEXT,
	executed BOOL
)`

type Store struct {
	db *genji.DB
}

// Open opens the genji database at path. ":memory:" keeps everything in
// memory.
func Open(path string) (*Store, error) {
	db, err := genji.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %s", path)
	}

	err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating transactions table")
	}

	logrus.Debugf("store opened at %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing store")
}

// Put records tx at position seq. executed tells whether Execute succeeded
// for it.
func (s *Store) Put(seq uint64, tx transaction.Transaction, executed bool) error {
	err := s.db.Exec(`INSERT INTO transactions
		(hash, seq, tx_version, tx_timestamp, executed_data, condition_data, script_id, executed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Hash().String(),
		int64(seq),
		int64(tx.Version),
		strconv.FormatUint(tx.Timestamp, 10),
		tx.ExecutedData,
		tx.ConditionData,
		script.IDString(tx.ExecutedData),
		executed,
	)
	return errors.Wrapf(err, "storing %s", tx.Hash())
}

// Get returns the stored transaction with the given hash.
func (s *Store) Get(hash transaction.Hash) (transaction.Transaction, error) {
	var (
		tx    transaction.Transaction
		found bool
	)
	err := s.iterate(`SELECT seq, tx_version, tx_timestamp, executed_data, condition_data
		FROM transactions WHERE hash = ?`, func(d types.Document) error {
		found = true
		var err error
		tx, err = scanTransaction(d)
		return err
	}, hash.String())
	if err != nil {
		return transaction.Transaction{}, err
	}
	if !found {
		return transaction.Transaction{}, errors.Wrapf(ErrNotFound, "%s", hash)
	}
	return tx, nil
}

// All returns every stored transaction ordered by seq. genji only honours
// ORDER BY on projected fields, so seq stays in the select list.
func (s *Store) All() ([]transaction.Transaction, error) {
	var txs []transaction.Transaction
	err := s.iterate(`SELECT seq, tx_version, tx_timestamp, executed_data, condition_data
		FROM transactions ORDER BY seq`, func(d types.Document) error {
		tx, err := scanTransaction(d)
		if err != nil {
			return err
		}
		txs = append(txs, tx)
		return nil
	})
	return txs, err
}

func (s *Store) Count() (int, error) {
	var n int64
	err := s.iterate(`SELECT COUNT(*) FROM transactions`, func(d types.Document) error {
		return errors.WithStack(document.Scan(d, &n))
	})
	return int(n), err
}

// Query runs an arbitrary read query and returns each document as a map.
func (s *Store) Query(q string) ([]map[string]interface{}, error) {
	results := make([]map[string]interface{}, 0)
	err := s.iterate(q, func(d types.Document) error {
		var m map[string]interface{}
		err := document.MapScan(d, &m)
		if err != nil {
			return errors.WithStack(err)
		}
		results = append(results, m)
		return nil
	})
	return results, err
}

func (s *Store) iterate(q string, fn func(d types.Document) error, args ...interface{}) error {
	res, err := s.db.Query(q, args...)
	if err != nil {
		return errors.Wrap(err, "query")
	}
	defer res.Close()

	return errors.Wrap(res.Iterate(fn), "iterating results")
}

func scanTransaction(d types.Document) (transaction.Transaction, error) {
	var (
		seq       int64
		version   int64
		timestamp string
		executed  []byte
		condition []byte
	)
	err := document.Scan(d, &seq, &version, &timestamp, &executed, &condition)
	if err != nil {
		return transaction.Transaction{}, errors.Wrap(err, "scanning transaction")
	}

	ts, err := strconv.ParseUint(timestamp, 10, 64)
	if err != nil {
		return transaction.Transaction{}, errors.Wrap(err, "timestamp")
	}

	return transaction.Transaction{
		Version:       uint32(version),
		Timestamp:     ts,
		ExecutedData:  executed,
		ConditionData: condition,
	}, nil
}
