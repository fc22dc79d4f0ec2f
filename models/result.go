package models

import "time"

// RequestResult is the structured outcome of one HTTP call, produced once
// per call after any retries. Success reflects the transport and status
// outcome; ParsedContent is only populated when the body parsed as JSON.
type RequestResult struct {
	Success       bool        `json:"success"`
	StatusCode    int         `json:"status_code,omitempty"`
	RawBody       string      `json:"raw_body,omitempty"`
	ParsedContent interface{} `json:"parsed_content,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// EndpointOutcome is reported to the caller for every endpoint call made
// during a run.
type EndpointOutcome struct {
	Endpoint       string `json:"endpoint"`
	Date           string `json:"date,omitempty"`
	Success        bool   `json:"success"`
	RecordsFetched int    `json:"records_fetched"`
	RecordsWritten int    `json:"records_written"`
	RecordsFailed  int    `json:"records_failed"`
	Error          string `json:"error,omitempty"`
}

// ImportSummary aggregates a day-by-day incremental import.
type ImportSummary struct {
	TotalRecordsWritten int `json:"total_records_written"`
	TotalDaysWithErrors int `json:"total_days_with_errors"`
}

// RunMetric is one execution record appended to the history file.
type RunMetric struct {
	ExecutionStart    time.Time         `json:"execution_start"`
	ExecutionEnd      time.Time         `json:"execution_end"`
	ExecutionDuration time.Duration     `json:"execution_duration"`
	DryRun            bool              `json:"dry_run,omitempty"`
	Outcomes          []EndpointOutcome `json:"outcomes"`
	RecordsWritten    int               `json:"records_written"`
	EndpointFailures  int               `json:"endpoint_failures"`
}
