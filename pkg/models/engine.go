// Package models contains shared data models used across the DealScope codebase.
package models

// EngineConfig describes one class of analysis work. Loaded from the
// engine_registry table and cached in memory by internal/registry.
type EngineConfig struct {
	EngineID       string  `db:"engine_id"       json:"engine_id"`
	QueueName      string  `db:"queue_name"      json:"queue_name"`
	MaxConcurrency int     `db:"max_concurrency" json:"max_concurrency"`
	JobTTLMinutes  int     `db:"job_ttl_minutes" json:"job_ttl_minutes"`
	Enabled        bool    `db:"enabled"         json:"enabled"`
	FeatureFlag    *string `db:"feature_flag"    json:"feature_flag,omitempty"`
}
