package models

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary is the result of one run. It is always produced, even when the
// run aborts early, so the caller is never left without a result.
type Summary struct {
	// RunID identifies the run in logs, reports and webhook events.
	RunID string `json:"run_id"`

	// Success is false only when a fault escaped the per-item boundary.
	// Individual item failures do not clear it.
	Success bool `json:"success"`

	// Error is populated only when Success is false.
	Error string `json:"error,omitempty"`

	// ErrorCode is the RunError code behind Error.
	ErrorCode string `json:"error_code,omitempty"`

	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`

	// DownloadDir is the destination directory.
	DownloadDir string `json:"download_dir"`

	// Discovered is the number of item affordances found on the first pass.
	Discovered int `json:"discovered"`

	// TotalReported is the page's own item counter, when it could be read.
	// Informational only.
	TotalReported *int `json:"total_reported,omitempty"`

	// Outcomes lists every attempted item in attempt order.
	Outcomes []Outcome `json:"outcomes"`

	// Observed lists files that appeared in DownloadDir during the run.
	// Informational only; never affects Downloaded or Failed.
	Observed []string `json:"observed,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Attempted is the number of items the run tried to export.
func (s *Summary) Attempted() int {
	return len(s.Outcomes)
}

// Record appends an outcome and updates the counters.
func (s *Summary) Record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Succeeded() {
		s.Downloaded++
	} else {
		s.Failed++
	}
}

// Failures returns the failed outcomes in attempt order.
func (s *Summary) Failures() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Fail marks the run unsuccessful with err.
func (s *Summary) Fail(err error) {
	s.Success = false
	s.Error = err.Error()
	s.ErrorCode = CodeOf(err)
}

const rule = "=================================================="

// WriteTo prints the fixed-format summary block.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	status := "SUCCESS"
	if !s.Success {
		status = "FAILED"
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("DOWNLOAD SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Downloaded: %d files\n", s.Downloaded)
	fmt.Fprintf(&b, "Failed: %d files\n", s.Failed)
	if s.Success {
		fmt.Fprintf(&b, "Location: %s\n", s.DownloadDir)
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", s.Error)
	}
	b.WriteString(rule + "\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
