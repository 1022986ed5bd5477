package models

import "time"

// ArchivalReport summarises one archival run.
type ArchivalReport struct {
	RunID         string         `json:"run_id"`
	Cutoff        time.Time      `json:"cutoff"`
	Fetched       int            `json:"fetched"`
	MigratedCount int            `json:"migrated_count"`
	Skipped       int            `json:"skipped"`
	Undated       int64          `json:"undated"`
	Partitions    map[string]int `json:"partitions"`
	Failed        []string       `json:"failed,omitempty"`
	IndexedNew    []string       `json:"indexed_new,omitempty"`
	Deleted       int64          `json:"deleted"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}
