package model

import "time"

// Error codes attached to failed report rows. Probe-level failures are not
// listed here: they degrade individual feature slots instead of failing rows.
const (
	ErrMalformedURL  = "malformed_url"
	ErrRecordTimeout = "record_timeout"
	ErrBatchTimeout  = "batch_timeout"
	ErrLowConfidence = "low_confidence"
	ErrInference     = "inference_error"
)

// Labels produced by the classifier.
const (
	LabelLegitimate = "legitimate"
	LabelPhishing   = "phishing"
)

// Classification is the classifier verdict for one feature vector.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ReportRow is one line of the batch report, one per input URL, in input
// order. Exactly one of Classification and ErrCode is populated.
type ReportRow struct {
	URL            string          `json:"url"`
	Features       []int8          `json:"features,omitempty"` // 30 values in contract order
	Degraded       []string        `json:"degraded,omitempty"` // names of slots that fell back to their default
	Classification *Classification `json:"classification,omitempty"`
	ErrCode        string          `json:"error,omitempty"`
}

// Classified reports whether the row carries a classifier verdict.
func (r ReportRow) Classified() bool {
	return r.Classification != nil && r.ErrCode == ""
}

// Failed reports whether the row carries an error code instead of a verdict.
func (r ReportRow) Failed() bool {
	return r.ErrCode != ""
}

// BatchReport is a completed batch job: one row per input URL plus metadata
// for storage and download.
type BatchReport struct {
	JobID     string      `json:"job_id"`
	CreatedAt time.Time   `json:"created_at"`
	Rows      []ReportRow `json:"rows"`
}

// ErrorResponse is the JSON shape returned on HTTP failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
