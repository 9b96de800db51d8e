package cache

import "time"

// Status is the result of processing one file in a run
type Status string

const (
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
	StatusEmpty     Status = "empty"
	StatusCancelled Status = "cancelled"
)

// Outcome is the journal record for the last time a source file was processed
type Outcome struct {
	// RunID identifies the run that produced this outcome
	RunID string `json:"run_id"`

	// SourceFile is the absolute path of the source file
	SourceFile string `json:"source"`

	// TargetFile is the artifact path the run wrote or would have written
	TargetFile string `json:"target"`

	// CacheKey is the result cache key for the content that was processed
	CacheKey string `json:"cache_key"`

	Status Status `json:"status"`

	// Error and Code describe the failure, empty on success
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
