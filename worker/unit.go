// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// Store retry behavior before a batch goes to the fallback file.
const (
	storeAttempts    = 3
	storeBackoffBase = 500 * time.Millisecond

	// batchRegrowStep is how fast the batch size recovers after
	// backpressure.
	batchRegrowStep = 10

	// softErrorBacklog caps how many soft errors ride along with
	// one progress report.
	softErrorBacklog = 50
)

// pipeline is the per-unit extraction state.
type pipeline struct {
	ctx       context.Context
	w         *Worker
	unit      *coordinate.WorkUnit
	converter *aqea.Converter

	batch          []*aqea.Entry
	batchSize      int
	interBatchWait time.Duration
	lastFlush      time.Time

	processed  int
	rate       float64
	rateInit   bool
	softErrors []coordinate.UnitError
}

// processUnit runs the fetch/convert/commit pipeline for one claimed
// unit.
func (w *Worker) processUnit(ctx context.Context, unit *coordinate.WorkUnit) error {
	log := w.log.WithField("work_id", unit.WorkID)
	converter, err := aqea.NewConverterWithClock(unit.Language, unit.Source, w.config.WorkerID, w.sink, w.clk)
	if err != nil {
		w.completeQuietly(unit, 0, false)
		return err
	}
	extractor, err := w.NewExtractor(unit.Source, unit.Language)
	if err != nil {
		w.completeQuietly(unit, 0, false)
		return err
	}
	defer extractor.Close()

	p := &pipeline{
		ctx:       ctx,
		w:         w,
		unit:      unit,
		converter: converter,
		batchSize: w.config.BatchSize,
		lastFlush: w.clk.Now(),
	}
	log.WithFields(logrus.Fields{
		"language": unit.Language,
		"start":    unit.RangeStart,
		"end":      unit.RangeEnd,
	}).Info("processing work unit")

	err = extractor.ExtractRange(ctx, unit.RangeStart, unit.RangeEnd, p.handle)
	if err != nil {
		p.flush()
		if ctx.Err() != nil {
			// Cooperative shutdown: report where we stopped but
			// do not complete.  The master's sweep recycles the
			// unit.
			p.soft("aborting", "worker shutting down")
			p.report()
			return ctx.Err()
		}
		if err == coordinate.ErrWrongWorker || err == coordinate.ErrUnitNotActive {
			log.Warn("unit was reassigned, abandoning")
			return err
		}
		p.report()
		w.completeQuietly(unit, p.processed, false)
		return err
	}

	p.flush()
	p.report()
	log.WithField("entries", p.processed).Info("work unit complete")
	return w.master.Complete(unit.WorkID, w.config.WorkerID, p.processed, true)
}

// completeQuietly reports failure without letting a master hiccup
// mask the original error.
func (w *Worker) completeQuietly(unit *coordinate.WorkUnit, count int, success bool) {
	if err := w.master.Complete(unit.WorkID, w.config.WorkerID, count, success); err != nil {
		w.log.WithFields(logrus.Fields{
			"work_id": unit.WorkID,
			"error":   err,
		}).Warn("completion report failed")
	}
}

// handle receives one record from the extractor.
func (p *pipeline) handle(rec aqea.Record) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	entry, err := p.converter.Convert(rec)
	if err != nil {
		p.soft("convert_error", rec.Word+": "+err.Error())
		return nil
	}
	p.batch = append(p.batch, entry)
	if len(p.batch) >= p.batchSize || p.w.clk.Since(p.lastFlush) >= p.w.config.FlushInterval {
		p.flush()
		if err := p.report(); err != nil {
			return err
		}
		if p.interBatchWait > 0 && !p.w.sleep(p.ctx, p.interBatchWait) {
			return p.ctx.Err()
		}
	}
	return nil
}

// flush commits the current batch, retrying transient failures and
// falling back to an NDJSON file when the store will not take it.
// The batch size shrinks geometrically under store pressure and grows
// back linearly on success.
func (p *pipeline) flush() {
	now := p.w.clk.Now()
	if len(p.batch) == 0 {
		p.lastFlush = now
		return
	}
	batch := p.batch
	p.batch = nil

	var err error
	backoff := storeBackoffBase
	for attempt := 0; attempt < storeAttempts; attempt++ {
		if attempt > 0 {
			if !p.w.sleep(p.ctx, backoff) {
				break
			}
			backoff *= 2
		}
		_, err = p.w.sink.UpsertEntries(batch)
		if err == nil {
			break
		}
	}

	if err != nil {
		path, fallbackErr := WriteFallback(p.w.config.FallbackDir, p.w.config.WorkerID, batch, p.w.clk)
		if fallbackErr != nil {
			p.w.log.WithError(fallbackErr).Error("fallback write failed, batch lost")
			p.soft("store_failure", err.Error())
		} else {
			p.w.log.WithFields(logrus.Fields{
				"entries": len(batch),
				"path":    path,
			}).Warn("store rejected batch, wrote fallback file")
			p.soft("store_failure", err.Error()+" (saved to "+path+")")
		}
		if p.batchSize/2 >= minBatchSize {
			p.batchSize /= 2
		} else {
			p.batchSize = minBatchSize
		}
		p.interBatchWait += time.Second
		if p.interBatchWait > maxInterBatchWait {
			p.interBatchWait = maxInterBatchWait
		}
	} else {
		if p.batchSize < p.w.config.BatchSize {
			p.batchSize += batchRegrowStep
			if p.batchSize > p.w.config.BatchSize {
				p.batchSize = p.w.config.BatchSize
			}
		}
		if p.interBatchWait > 0 {
			p.interBatchWait -= time.Second
			if p.interBatchWait < 0 {
				p.interBatchWait = 0
			}
		}
	}

	// Extracted entries count as processed even when they only
	// made it to the fallback file.
	p.processed += len(batch)
	p.observeRate(len(batch), now)
	p.lastFlush = now
}

// observeRate folds one flush into the per-minute EWMA.
func (p *pipeline) observeRate(n int, now time.Time) {
	minutes := now.Sub(p.lastFlush).Minutes()
	if minutes <= 0 {
		return
	}
	sample := float64(n) / minutes
	if !p.rateInit {
		p.rate = sample
		p.rateInit = true
		return
	}
	p.rate = rateAlpha*sample + (1-rateAlpha)*p.rate
}

// report sends cumulative progress.  Ownership conflicts propagate so
// the pipeline abandons the unit.
func (p *pipeline) report() error {
	drained := p.softErrors
	p.softErrors = nil
	err := p.w.master.Progress(p.unit.WorkID, p.w.config.WorkerID, p.processed, p.rate, drained)
	switch err {
	case nil:
		return nil
	case coordinate.ErrWrongWorker, coordinate.ErrUnitNotActive:
		return err
	default:
		// Transient reporting problems do not stop extraction;
		// the next report carries the cumulative count anyway.
		p.w.log.WithError(err).Warn("progress report failed")
		p.softErrors = drained
		return nil
	}
}

// soft records one soft error for the next progress report.
func (p *pipeline) soft(kind, detail string) {
	if len(p.softErrors) >= softErrorBacklog {
		return
	}
	p.softErrors = append(p.softErrors, coordinate.UnitError{Kind: kind, Detail: detail})
}
