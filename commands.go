package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OdyseeTeam/fast-ledger/chain"
	"github.com/OdyseeTeam/fast-ledger/loader"
	"github.com/OdyseeTeam/fast-ledger/script"
	"github.com/OdyseeTeam/fast-ledger/server"
	"github.com/OdyseeTeam/fast-ledger/storage"
	"github.com/OdyseeTeam/fast-ledger/transaction"

	"github.com/cockroachdb/errors"
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	dataDirFlag   = cli.StringFlag{Name: "data-dir, d", Usage: "transaction log directory"}
	storeFlag     = cli.StringFlag{Name: "store", Usage: "genji store path (:memory: for none)"}
	workersFlag   = cli.IntFlag{Name: "workers, w", Usage: "parallel decode workers"}
	noExecuteFlag = cli.BoolFlag{Name: "no-execute", Usage: "skip transaction execution"}

	// Transaction implements Stringer, which spew would print instead of the fields.
	dumper = spew.ConfigState{Indent: "  ", DisableMethods: true}
)

func encodeCommand() cli.Command {
	return cli.Command{
		Name:  "encode",
		Usage: "print the canonical hex encoding of a transaction",
		Flags: []cli.Flag{
			cli.UintFlag{Name: "version"},
			cli.Uint64Flag{Name: "timestamp, t"},
			cli.StringFlag{Name: "executed", Usage: "executed script hex; defaults to a single OpEcho"},
			cli.StringFlag{Name: "condition", Usage: "condition script hex; defaults to the empty script"},
		},
		Action: func(ctx *cli.Context) error {
			tx, err := txFromFlags(ctx)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(tx.Encode()))
			return nil
		},
	}
}

func decodeCommand() cli.Command {
	return cli.Command{
		Name:      "decode",
		Usage:     "decode a hex transaction",
		ArgsUsage: "HEX",
		Flags:     []cli.Flag{cli.BoolFlag{Name: "dump", Usage: "print the raw struct"}},
		Action: func(ctx *cli.Context) error {
			tx, err := txFromArg(ctx.Args().First())
			if err != nil {
				return err
			}
			if ctx.Bool("dump") {
				dumper.Dump(tx)
			}
			fmt.Println(tx)
			fmt.Printf("version:   %d\n", tx.Version)
			fmt.Printf("timestamp: %d\n", tx.Timestamp)
			printScript("executed", tx.ExecutedData)
			printScript("condition", tx.ConditionData)
			return nil
		},
	}
}

func printScript(label string, b []byte) {
	names := transaction.NewInterpreter(os.Stdout).Names()
	s, err := script.Decode(b)
	if err != nil {
		fmt.Printf("%-10s %s (not a script: %v)\n", label+":", script.ToHex(b), err)
		return
	}
	fmt.Printf("%-10s %s [%s] id %s\n", label+":", script.ToHex(b), s.Disasm(names), script.IDString(b))
}

func hashCommand() cli.Command {
	return cli.Command{
		Name:      "hash",
		Usage:     "print the hash of a hex transaction",
		ArgsUsage: "HEX",
		Action: func(ctx *cli.Context) error {
			tx, err := txFromArg(ctx.Args().First())
			if err != nil {
				return err
			}
			fmt.Println(tx.Hash())
			return nil
		},
	}
}

func executeCommand() cli.Command {
	return cli.Command{
		Name:      "execute",
		Usage:     "run the executed script of a hex transaction",
		ArgsUsage: "HEX",
		Action: func(ctx *cli.Context) error {
			tx, err := txFromArg(ctx.Args().First())
			if err != nil {
				return err
			}
			err = tx.Execute()
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("%s: %v", tx, err), 2)
			}
			logrus.Infof("%s executed", tx)
			return nil
		},
	}
}

func rootCommand() cli.Command {
	return cli.Command{
		Name:      "root",
		Usage:     "print the root hash of hex transactions, or of the log with --data-dir",
		ArgsUsage: "[HEX...]",
		Flags:     []cli.Flag{dataDirFlag, cli.BoolFlag{Name: "merkle", Usage: "print the binary Merkle root instead"}},
		Action: func(ctx *cli.Context) error {
			var txs []transaction.Transaction
			if ctx.IsSet("data-dir") {
				l, err := chain.Open(ctx.String("data-dir"))
				if err != nil {
					return err
				}
				defer l.Close()
				txs, err = l.Transactions()
				if err != nil {
					return err
				}
			}
			for _, arg := range ctx.Args() {
				tx, err := txFromArg(arg)
				if err != nil {
					return err
				}
				txs = append(txs, tx)
			}

			if ctx.Bool("merkle") {
				fmt.Println(transaction.MerkleRoot(txs))
			} else {
				fmt.Println(transaction.RootHash(txs))
			}
			return nil
		},
	}
}

func appendCommand() cli.Command {
	return cli.Command{
		Name:      "append",
		Usage:     "append hex transactions to the log",
		ArgsUsage: "HEX...",
		Flags:     []cli.Flag{dataDirFlag, noExecuteFlag},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			l, err := chain.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer l.Close()

			for _, arg := range ctx.Args() {
				tx, err := txFromArg(arg)
				if err != nil {
					return err
				}
				if cfg.Execute {
					err = tx.Execute()
					if err != nil {
						return errors.Wrapf(err, "%s", tx)
					}
				}
				height, err := l.Append(tx)
				if err != nil {
					return err
				}
				fmt.Printf("%d %s\n", height, tx.Hash())
			}
			return nil
		},
	}
}

func loadCommand() cli.Command {
	return cli.Command{
		Name:  "load",
		Usage: "replay the log into the store",
		Flags: []cli.Flag{
			dataDirFlag, storeFlag, workersFlag, noExecuteFlag,
			cli.Uint64Flag{Name: "max-height", Usage: "stop at this height. 0 = load it all"},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			l, st, err := openBackends(cfg.DataDir, cfg.StorePath)
			if err != nil {
				return err
			}
			defer l.Close()
			defer st.Close()

			sigCtx, stop := signalContext()
			defer stop()

			res, err := loader.Load(sigCtx, l, st, loader.Options{
				Workers:   cfg.Workers,
				MaxHeight: ctx.Uint64("max-height"),
				Execute:   cfg.Execute,
			})
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d transactions, %d failed execution\n", res.Loaded, res.Failed)
			return nil
		},
	}
}

func serveCommand() cli.Command {
	return cli.Command{
		Name:  "serve",
		Usage: "load the log into the store and serve it over HTTP",
		Flags: []cli.Flag{
			dataDirFlag, storeFlag, workersFlag, noExecuteFlag,
			cli.StringFlag{Name: "listen, l", Usage: "HTTP listen address"},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			l, st, err := openBackends(cfg.DataDir, cfg.StorePath)
			if err != nil {
				return err
			}
			defer l.Close()
			defer st.Close()

			sigCtx, stop := signalContext()
			defer stop()

			err = preload(sigCtx, l, st, cfg.Workers, cfg.Execute)
			if err != nil {
				return err
			}

			return server.New(l, st, cfg.Execute).ListenAndServe(sigCtx, cfg.Listen)
		},
	}
}

// preload replays the log into st unless the store already holds
// transactions.
func preload(ctx context.Context, l *chain.Log, st *storage.Store, workers int, execute bool) error {
	n, err := st.Count()
	if err != nil {
		return errors.Wrap(err, "counting stored transactions")
	}
	if n > 0 {
		logrus.Infof("store already holds %d transactions, skipping load", n)
		return nil
	}
	_, err = loader.Load(ctx, l, st, loader.Options{Workers: workers, Execute: execute})
	return err
}

func openBackends(dataDir, storePath string) (*chain.Log, *storage.Store, error) {
	l, err := chain.Open(dataDir)
	if err != nil {
		return nil, nil, err
	}
	st, err := storage.Open(storePath)
	if err != nil {
		l.Close()
		return nil, nil, err
	}
	return l, st, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func txFromArg(arg string) (transaction.Transaction, error) {
	if arg == "" {
		return transaction.Transaction{}, cli.NewExitError("a hex encoded transaction is required", 1)
	}
	b, err := hex.DecodeString(strings.TrimSpace(arg))
	if err != nil {
		return transaction.Transaction{}, errors.Wrap(err, "transaction hex")
	}
	return transaction.Decode(b)
}

func txFromFlags(ctx *cli.Context) (transaction.Transaction, error) {
	executed := script.New().Push(transaction.OpEchoCode, nil).Encode()
	condition := script.New().Encode()

	var err error
	if ctx.IsSet("executed") {
		executed, err = hex.DecodeString(ctx.String("executed"))
		if err != nil {
			return transaction.Transaction{}, errors.Wrap(err, "executed")
		}
	}
	if ctx.IsSet("condition") {
		condition, err = hex.DecodeString(ctx.String("condition"))
		if err != nil {
			return transaction.Transaction{}, errors.Wrap(err, "condition")
		}
	}

	version := ctx.Uint("version")
	if uint64(version) > uint64(^uint32(0)) {
		return transaction.Transaction{}, errors.Newf("version %d overflows uint32", version)
	}

	return transaction.Transaction{
		Version:       uint32(version),
		Timestamp:     ctx.Uint64("timestamp"),
		ExecutedData:  executed,
		ConditionData: condition,
	}, nil
}
