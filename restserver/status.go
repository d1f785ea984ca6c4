// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

// Status aggregates the whole extraction's progress: unit counts,
// per-language breakdowns, worker liveness, and a naive ETA from the
// sum of the active workers' rates.
func (api *restAPI) Status(ctx *context) (interface{}, error) {
	var (
		units   []*coordinate.WorkUnit
		workers []*coordinate.WorkerInfo
	)
	err := api.withStore(func() error {
		var err error
		if units, err = api.Store.WorkUnits(); err != nil {
			return err
		}
		workers, err = api.Store.Workers()
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := restdata.StatusResponse{
		Languages: []restdata.LanguageStatus{},
		Workers:   []restdata.Worker{},
		Units:     []restdata.WorkUnit{},
	}
	perLanguage := map[[2]string]*restdata.LanguageStatus{}
	languageOrder := [][2]string{}
	for _, unit := range units {
		resp.TotalUnits++
		resp.EstimatedTotal += unit.EstimatedEntries
		key := [2]string{unit.Language, unit.Source}
		lang := perLanguage[key]
		if lang == nil {
			lang = &restdata.LanguageStatus{
				Language: unit.Language,
				Source:   unit.Source,
			}
			perLanguage[key] = lang
			languageOrder = append(languageOrder, key)
		}
		switch unit.Status {
		case coordinate.UnitPending:
			resp.UnitsPending++
			lang.UnitsPending++
		case coordinate.UnitAssigned, coordinate.UnitProcessing:
			resp.UnitsActive++
			lang.UnitsActive++
			resp.OverallRate += unit.CurrentRate
		case coordinate.UnitCompleted:
			resp.UnitsCompleted++
			lang.UnitsCompleted++
		case coordinate.UnitFailed:
			resp.UnitsFailed++
			lang.UnitsFailed++
			resp.HardErrors++
		}
		resp.SoftErrors += len(unit.Errors)
		resp.EntriesProcessed += unit.EntriesProcessed
		resp.Units = append(resp.Units, restdata.FromWorkUnit(unit))
	}
	for _, key := range languageOrder {
		resp.Languages = append(resp.Languages, *perLanguage[key])
	}
	for _, worker := range workers {
		resp.Workers = append(resp.Workers, restdata.FromWorkerInfo(worker))
	}
	if resp.OverallRate > 0 && resp.EstimatedTotal > resp.EntriesProcessed {
		// Rates are entries per minute.
		remaining := float64(resp.EstimatedTotal - resp.EntriesProcessed)
		resp.ETASeconds = int(remaining / resp.OverallRate * 60)
	}
	return resp, nil
}

// Health reports liveness: 200 when the store answers its ping, 503
// when it does not.
func (api *restAPI) Health(ctx *context) (interface{}, error) {
	if err := api.Store.Ping(); err != nil {
		return nil, restdata.ErrUnavailable{Err: err}
	}
	return restdata.HealthResponse{Status: "ok"}, nil
}
