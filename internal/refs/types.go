// Package refs defines core reference-processing types shared across subsystems.
package refs

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reference is one citation entry extracted from a source document. It is
// created by the extraction collaborator and immutable thereafter.
type Reference struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
}

// DisplayTitle returns the reference title, synthesizing one when the
// extractor found no usable text.
func (r Reference) DisplayTitle() string {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Sprintf("Reference #%d", r.ID)
	}
	return r.Title
}

// Status is the terminal state of one processed reference.
type Status string

// Terminal statuses reported per reference.
const (
	StatusDownloaded Status = "downloaded"
	StatusFailed     Status = "failed"
)

// JobResult is the terminal outcome of processing one reference. It is a
// tagged variant over Downloaded/Failed: exactly one of the output payload or
// the error is populated, enforced by the constructors.
type JobResult struct {
	ref        Reference
	status     Status
	outputName string
	output     []byte
	err        error
}

// Downloaded builds a successful result carrying the captured document bytes.
func Downloaded(ref Reference, outputName string, output []byte) JobResult {
	return JobResult{
		ref:        ref,
		status:     StatusDownloaded,
		outputName: outputName,
		output:     output,
	}
}

// Failed builds a terminal failure result for the reference.
func Failed(ref Reference, err error) JobResult {
	return JobResult{
		ref:    ref,
		status: StatusFailed,
		err:    err,
	}
}

// Reference returns the input reference this result belongs to.
func (j JobResult) Reference() Reference {
	return j.ref
}

// Status returns the terminal status.
func (j JobResult) Status() Status {
	return j.status
}

// OutputName returns the suggested file name for a downloaded result.
func (j JobResult) OutputName() string {
	return j.outputName
}

// Output returns the document bytes and whether the result succeeded.
func (j JobResult) Output() ([]byte, bool) {
	if j.status != StatusDownloaded {
		return nil, false
	}
	return j.output, true
}

// Err returns the terminal error for a failed result, nil otherwise.
func (j JobResult) Err() error {
	return j.err
}

// ErrorText returns the human-readable failure message, empty on success.
func (j JobResult) ErrorText() string {
	if j.err == nil {
		return ""
	}
	return j.err.Error()
}

// ReportRow is the per-reference projection exposed to callers.
type ReportRow struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url"`
	Status     Status `json:"status"`
	OutputName string `json:"output_name,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchReport is the terminal artifact of one batch run.
type BatchReport struct {
	BatchID   string        `json:"batch_id"`
	Rows      []ReportRow   `json:"rows"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ms"`
}

// BuildReport aggregates results into a BatchReport. Rows are ordered by
// reference ID so the report is independent of result arrival order.
func BuildReport(batchID string, results []JobResult, duration time.Duration) BatchReport {
	report := BatchReport{
		BatchID:  batchID,
		Rows:     make([]ReportRow, 0, len(results)),
		Duration: duration,
	}
	for _, res := range results {
		ref := res.Reference()
		row := ReportRow{
			ID:         ref.ID,
			Title:      ref.DisplayTitle(),
			SourceURL:  ref.SourceURL,
			Status:     res.Status(),
			OutputName: res.OutputName(),
			Error:      res.ErrorText(),
		}
		if res.Status() == StatusDownloaded {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Rows = append(report.Rows, row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].ID < report.Rows[j].ID
	})
	return report
}

// ArchiveEntry is one named file inside the assembled archive.
type ArchiveEntry struct {
	Name    string
	Content []byte
}
