// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.  Generally JSON encodings of
// these are passed across the wire as the
// application/vnd.aqea.extractor.v1+json MIME type.
//
// API Usage
//
// HTTP GET the root document at its specified URL.  This returns a
// JSON serialization of the RootData object.  That serialization has
// links to the other resources; follow these links, filling in
// template values, to reach them.  Some of the URL fields are RFC
// 6570 URI templates: URL strings with a {parameter} in curly braces
// or a {?p1} query-string form.  The URL structure is predictable but
// not part of the API contract; only the root document's shape is.
//
// Statuses travel as their lower-case wire names ("pending",
// "working", ...).  Addresses travel in their canonical
// "0xAA:QQ:EE:A2" form.  Timestamps are RFC 3339 strings.
//
// Errors are returned as encodings of the ErrorResponse type with a
// failing HTTP status.  The response can round-trip the coordinate
// package's well-known errors; other errors come back as plain
// strings.
package restdata

import (
	"time"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// V1JSONMediaType is the preferred, most specific MIME type for the
// JSON representation of this content.
const V1JSONMediaType = "application/vnd.aqea.extractor.v1+json"

// JSONMediaType requests the most recent version of the JSON
// representation of this content.
const JSONMediaType = "application/vnd.aqea.extractor+json"

// RootData is returned by the root path.
type RootData struct {
	// RegisterURL accepts an HTTP POST of a RegistrationRequest
	// and returns a RegistrationResponse.
	RegisterURL string `json:"register_url"`

	// WorkURL dispenses work.  HTTP GET returns a WorkUnit (200),
	// no content when nothing is pending (204), or an
	// ErrorResponse when the worker already holds a unit (409).
	// This is a URI template with a "worker_id" query parameter.
	WorkURL string `json:"work_url"`

	// ProgressURL accepts an HTTP POST of a ProgressRequest.
	// This is a URI template with a "work_id" parameter.
	ProgressURL string `json:"progress_url"`

	// CompleteURL accepts an HTTP POST of a CompleteRequest.
	// This is a URI template with a "work_id" parameter.
	CompleteURL string `json:"complete_url"`

	// HeartbeatURL accepts an HTTP POST of a HeartbeatRequest.
	HeartbeatURL string `json:"heartbeat_url"`

	// StatusURL returns a StatusResponse on HTTP GET.
	StatusURL string `json:"status_url"`

	// HealthURL returns a HealthResponse on HTTP GET.
	HealthURL string `json:"health_url"`

	// EntriesURL accepts an HTTP POST of an EntryBatch, returning
	// UpsertStats, and an HTTP GET with a "pattern" query
	// parameter, returning an EntryList.  This is a URI template.
	EntriesURL string `json:"entries_url"`

	// EntryURL returns a single Entry on HTTP GET.  This is a URI
	// template with an "address" parameter.
	EntryURL string `json:"entry_url"`
}

// RegistrationRequest is the body of the worker registration call.
// An empty WorkerID asks the master to generate one.
type RegistrationRequest struct {
	WorkerID string `json:"worker_id,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// RegistrationResponse tells a worker its identity and cadence.
type RegistrationResponse struct {
	WorkerID          string `json:"worker_id"`
	HeartbeatInterval int    `json:"heartbeat_interval_seconds"`
}

// WorkUnit is the wire representation of coordinate.WorkUnit.
type WorkUnit struct {
	WorkID           string                 `json:"work_id"`
	Language         string                 `json:"language"`
	Source           string                 `json:"source"`
	RangeStart       string                 `json:"range_start"`
	RangeEnd         string                 `json:"range_end"`
	EstimatedEntries int                    `json:"estimated_entries"`
	Status           string                 `json:"status"`
	AssignedWorker   string                 `json:"assigned_worker,omitempty"`
	AssignedAt       *time.Time             `json:"assigned_at,omitempty"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	EntriesProcessed int                    `json:"entries_processed"`
	CurrentRate      float64                `json:"current_rate"`
	RetryCount       int                    `json:"retry_count"`
	MaxRetries       int                    `json:"max_retries"`
	LastError        string                 `json:"last_error,omitempty"`
	Errors           []coordinate.UnitError `json:"errors,omitempty"`
}

// ProgressRequest is a worker's cumulative progress report.
type ProgressRequest struct {
	WorkerID         string                 `json:"worker_id"`
	EntriesProcessed int                    `json:"entries_processed"`
	Rate             float64                `json:"rate"`
	Errors           []coordinate.UnitError `json:"errors,omitempty"`
}

// CompleteRequest finishes a work unit.
type CompleteRequest struct {
	WorkerID   string `json:"worker_id"`
	FinalCount int    `json:"final_count"`
	Success    bool   `json:"success"`
}

// HeartbeatRequest refreshes a worker's liveness.
type HeartbeatRequest struct {
	WorkerID      string `json:"worker_id"`
	Status        string `json:"status"`
	CurrentWorkID string `json:"current_work_id,omitempty"`
}

// Worker is the wire representation of coordinate.WorkerInfo.
type Worker struct {
	WorkerID       string    `json:"worker_id"`
	IP             string    `json:"ip,omitempty"`
	Status         string    `json:"status"`
	CurrentWorkID  string    `json:"current_work_id,omitempty"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	TotalProcessed int       `json:"total_processed"`
	AverageRate    float64   `json:"average_rate"`
}

// LanguageStatus is per-language progress in a StatusResponse.
type LanguageStatus struct {
	Language       string `json:"language"`
	Source         string `json:"source"`
	UnitsPending   int    `json:"units_pending"`
	UnitsActive    int    `json:"units_active"`
	UnitsCompleted int    `json:"units_completed"`
	UnitsFailed    int    `json:"units_failed"`
}

// StatusResponse is the master's aggregate view of the extraction.
type StatusResponse struct {
	TotalUnits       int              `json:"total_units"`
	UnitsPending     int              `json:"units_pending"`
	UnitsActive      int              `json:"units_active"`
	UnitsCompleted   int              `json:"units_completed"`
	UnitsFailed      int              `json:"units_failed"`
	EntriesProcessed int              `json:"entries_processed"`
	EstimatedTotal   int              `json:"estimated_total"`
	OverallRate      float64          `json:"overall_rate"`
	ETASeconds       int              `json:"eta_seconds"`
	SoftErrors       int              `json:"soft_errors"`
	HardErrors       int              `json:"hard_errors"`
	Languages        []LanguageStatus `json:"languages"`
	Workers          []Worker         `json:"workers"`
	Units            []WorkUnit       `json:"units"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// Entry is the wire representation of aqea.Entry.
type Entry struct {
	Address     string          `json:"address"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Domain      string          `json:"domain"`
	Status      string          `json:"status"`
	LangUI      string          `json:"lang_ui,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	Meta        aqea.Meta       `json:"meta,omitempty"`
	Relations   []EntryRelation `json:"relations,omitempty"`
}

// EntryRelation is the wire representation of aqea.Relation.
type EntryRelation struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// EntryBatch is a batch of entries for upsert.
type EntryBatch struct {
	Entries []Entry `json:"entries"`
}

// EntryList is the response to an entry pattern query.
type EntryList struct {
	Entries []Entry `json:"entries"`
}

// UpsertStats reports what an entry batch upsert actually did.
type UpsertStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
