// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package main provides the AQEA extraction master: it serves the
// coordination REST API, installs the language plans from its config
// file, sweeps stale workers, and exports prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/backend"
	"github.com/aqea/go-extractor/master"
	"github.com/aqea/go-extractor/restserver"
)

// Exit codes.
const (
	exitOK        = 0
	exitFatal     = 1
	exitLanguage  = 2
	exitBackend   = 3
	exitInterrupt = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	httpBind := flag.String("http", "", "[ip]:port for the REST interface (overrides config)")
	storage := backend.Backend{Implementation: "memory", Address: ""}
	flag.Var(&storage, "backend", "impl[:address] of the storage backend (overrides config)")
	configPath := flag.String("config", "", "master configuration YAML file")
	logLevel := flag.String("log-level", "", "logrus level name (overrides config)")
	flag.Parse()

	if *configPath == "" {
		logrus.Error("a -config file with language plans is required")
		return exitFatal
	}
	config, err := master.LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Error("could not load configuration")
		var unsupported aqea.ErrUnsupportedLanguage
		if errors.As(err, &unsupported) {
			return exitLanguage
		}
		return exitFatal
	}
	if *httpBind != "" {
		config.Listen = *httpBind
	}
	if config.Backend != "" && storage.Implementation == "memory" && storage.Address == "" {
		if err := storage.Set(config.Backend); err != nil {
			logrus.WithError(err).Error("bad backend in configuration")
			return exitFatal
		}
	}
	level := *logLevel
	if level == "" {
		level = config.LogLevel
	}
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.WithError(err).Error("bad log level")
			return exitFatal
		}
		logrus.SetLevel(parsed)
	}

	store, err := storage.StoreWithFallback()
	if err != nil {
		logrus.WithError(err).Error("no storage backend available")
		return exitBackend
	}
	defer store.Close()

	m := master.New(store, config.Plans)
	if err := m.Install(); err != nil {
		logrus.WithError(err).Error("could not install work plans")
		return exitBackend
	}

	router := mux.NewRouter()
	restserver.PopulateRouter(router, store)
	router.Handle("/metrics", m.MetricsHandler())

	n := negroni.New(negroni.NewRecovery(), negroni.NewLogger())
	n.UseHandler(router)
	server := &http.Server{Addr: config.Listen, Handler: n}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	var received os.Signal
	go func() {
		received = <-sigCh
		stop()
	}()

	sweepDone := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(sweepDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"listen":  config.Listen,
			"backend": storage.String(),
		}).Info("master listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		logrus.WithError(err).Error("HTTP server failed")
		stop()
		<-sweepDone
		return exitFatal
	case <-ctx.Done():
		logrus.Info("shutting down")
		server.Shutdown(context.Background())
		<-sweepDone
		if received == syscall.SIGINT {
			return exitInterrupt
		}
		return exitOK
	}
}
