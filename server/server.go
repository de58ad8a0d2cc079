// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/OdyseeTeam/fast-ledger/chain"
	"github.com/OdyseeTeam/fast-ledger/interpreter"
	"github.com/OdyseeTeam/fast-ledger/storage"
	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// maxBodySize is the largest hex body POST /tx accepts.
const maxBodySize = 4*transaction.MaxPayloadSize + 64

type Server struct {
	log     *chain.Log
	store   *storage.Store
	execute bool
	interp  *interpreter.Interpreter
}

// New serves log and store. With execute set, submitted transactions must
// execute successfully before they are appended.
func New(log *chain.Log, store *storage.Store, execute bool) *Server {
	return &Server{
		log:     log,
		store:   store,
		execute: execute,
		interp:  transaction.NewInterpreter(os.Stdout),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/tx", s.submit())
	mux.Handle("/tx/", s.lookup())
	mux.Handle("/root", s.root())
	mux.Handle("/sql", s.query())
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "http shutdown")
	}
}

type submitResponse struct {
	Height      uint64                  `json:"height"`
	Transaction transaction.Transaction `json:"transaction"`
}

type rootResponse struct {
	Height     uint64           `json:"height"`
	Root       transaction.Hash `json:"root"`
	MerkleRoot transaction.Hash `json:"merkle_root"`
}

func (s *Server) submit() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, errors.New("POST a hex encoded transaction"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		raw, err := hex.DecodeString(strings.TrimSpace(string(body)))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, "body is not hex"))
			return
		}
		tx, err := transaction.Decode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		executed := false
		if s.execute {
			err = tx.ExecuteWith(s.interp)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			executed = true
		}

		height, err := s.log.Append(tx)
		if errors.Is(err, chain.ErrDuplicate) {
			writeError(w, http.StatusConflict, err)
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		err = s.store.Put(height, tx, executed)
		if err != nil {
			// the log is authoritative; the store catches up on the next load
			logrus.Errorf("%+v", err)
		}

		logrus.Infof("accepted %s at height %d", tx.Hash(), height)
		writeJSON(w, http.StatusCreated, submitResponse{Height: height, Transaction: tx})
	})
}

func (s *Server) lookup() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash, err := transaction.HashFromString(strings.TrimPrefix(r.URL.Path, "/tx/"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		tx, height, err := s.log.Get(hash)
		if errors.Is(err, chain.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusOK, submitResponse{Height: height, Transaction: tx})
	})
}

func (s *Server) root() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txs, err := s.log.Transactions()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rootResponse{
			Height:     uint64(len(txs)),
			Root:       transaction.RootHash(txs),
			MerkleRoot: transaction.MerkleRoot(txs),
		})
	})
}

func (s *Server) query() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.FormValue("query")
		results, err := s.store.Query(q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logrus.Debugf("%d: %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
