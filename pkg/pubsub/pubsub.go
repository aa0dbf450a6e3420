// Package pubsub fans analysis run events out to streaming subscribers.
package pubsub

import (
	"encoding/json"
	"fmt"
	"io"
)

// Topics published by the analyzer
const (
	TopicAnalysisStatus = "analysis_status"
	TopicReport         = "report"
)

// Analysis states carried by TopicAnalysisStatus events
const (
	StateRunning  = "running"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// AnalysisStatus describes the state of an analysis run
type AnalysisStatus struct {
	State   string `json:"state"`
	RunID   string `json:"runId,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// ReportUpdate announces that a new report is available
type ReportUpdate struct {
	RunID    string `json:"runId"`
	Classes  int    `json:"classes"`
	Edges    int    `json:"edges"`
	Cycles   int    `json:"cycles"`
	Failures int    `json:"failures"`
}

// Event is one published message. Seq increases per topic.
type Event struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Seq   int             `json:"seq"`
	Data  json.RawMessage `json:"data"`
}

// Status decodes the payload of an analysis status event
func (e Event) Status() (AnalysisStatus, error) {
	var s AnalysisStatus
	if e.Topic != TopicAnalysisStatus {
		return s, fmt.Errorf("event on topic %q carries no analysis status", e.Topic)
	}
	err := json.Unmarshal(e.Data, &s)
	return s, err
}

// Report decodes the payload of a report event
func (e Event) Report() (ReportUpdate, error) {
	var u ReportUpdate
	if e.Topic != TopicReport {
		return u, fmt.Errorf("event on topic %q carries no report update", e.Topic)
	}
	err := json.Unmarshal(e.Data, &u)
	return u, err
}

// WriteTo frames the event as a Server-Sent Event. The id field lets
// browsers resume with Last-Event-ID and the event field names the type.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("encoding %s event: %w", e.Topic, err)
	}
	n, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Type, body)
	return int64(n), err
}
