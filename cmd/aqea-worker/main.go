// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package main provides the AQEA extraction worker.  It registers
// with a master, claims work units, streams entries out of the
// configured source, and writes them to the storage backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/aqea/go-extractor/backend"
	"github.com/aqea/go-extractor/restclient"
	"github.com/aqea/go-extractor/worker"
)

// Exit codes.
const (
	exitFatal     = 1
	exitBackend   = 3
	exitInterrupt = 130
)

func main() {
	storage := backend.Backend{Implementation: "memory", Address: ""}

	app := cli.NewApp()
	app.Name = "aqea-worker"
	app.Usage = "extract lexical entries under an AQEA master"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "master",
			Value: "http://localhost:8080/",
			Usage: "base URL of the master's REST API",
		},
		cli.StringFlag{
			Name:  "id",
			Usage: "worker id (default: a generated UUID)",
		},
		cli.GenericFlag{
			Name:  "backend",
			Value: &storage,
			Usage: "impl[:address] of the storage backend",
		},
		cli.IntFlag{
			Name:  "batch-size",
			Value: worker.DefaultBatchSize,
			Usage: "entries per upsert batch",
		},
		cli.DurationFlag{
			Name:  "flush-interval",
			Value: worker.DefaultFlushInterval,
			Usage: "maximum time a partial batch may wait",
		},
		cli.StringFlag{
			Name:  "fallback-dir",
			Value: worker.DefaultFallbackDir,
			Usage: "directory for NDJSON fallback files",
		},
		cli.BoolFlag{
			Name:  "exit-on-idle",
			Usage: "exit when the master has no pending work",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "logrus level name",
		},
	}
	app.Action = func(c *cli.Context) error {
		level, err := logrus.ParseLevel(c.String("log-level"))
		if err != nil {
			return cli.NewExitError(err.Error(), exitFatal)
		}
		logrus.SetLevel(level)

		workerID := c.String("id")
		if workerID == "" {
			workerID = uuid.NewV4().String()
		}

		store, err := storage.StoreWithFallback()
		if err != nil {
			logrus.WithError(err).Error("no storage backend available")
			return cli.NewExitError(err.Error(), exitBackend)
		}
		defer store.Close()

		client, err := restclient.New(c.String("master"))
		if err != nil {
			logrus.WithError(err).Error("could not reach master")
			return cli.NewExitError(err.Error(), exitFatal)
		}

		w := worker.New(worker.Config{
			WorkerID:      workerID,
			BatchSize:     c.Int("batch-size"),
			FlushInterval: c.Duration("flush-interval"),
			FallbackDir:   c.String("fallback-dir"),
			ExitOnIdle:    c.Bool("exit-on-idle"),
		}, client, store)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		ctx, stop := context.WithCancel(context.Background())
		defer stop()
		var received os.Signal
		go func() {
			received = <-sigCh
			logrus.Info("shutting down after current batch")
			stop()
		}()

		if err := w.Run(ctx); err != nil {
			logrus.WithError(err).Error("worker failed")
			return cli.NewExitError(err.Error(), exitFatal)
		}
		if received == syscall.SIGINT {
			return cli.NewExitError("", exitInterrupt)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
