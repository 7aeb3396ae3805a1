package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

// Type names the kind of milestone an Event represents.
type Type string

// Supported event types, in the order a run produces them.
const (
	TypeStart        Type = "start"
	TypeCompanyStart Type = "company_start"
	TypeStep         Type = "step"
	TypeCompanyDone  Type = "company_done"
	TypeDone         Type = "done"
	TypeError        Type = "error"
)

// Event is one entry of a job's ordered event log. Events are never mutated
// after they are appended.
type Event struct {
	// JobID is the short identifier of the run that produced the event.
	JobID string
	// Seq is the zero-based position of the event in the job log.
	Seq int
	// TS is the UTC time the event was appended.
	TS time.Time
	// Type selects which payload Data holds.
	Type Type
	// Data is one of the *Data payload structs below.
	Data any
}

// StartData opens a run.
type StartData struct {
	Total int `json:"total"`
}

// CompanyStartData announces the company about to be crawled.
type CompanyStartData struct {
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Company string `json:"company"`
	Website string `json:"website"`
}

// StepData carries a human-readable progress line.
type StepData struct {
	Company string `json:"company"`
	Step    string `json:"step"`
}

// CompanyDoneData carries the full result for a finished company.
type CompanyDoneData struct {
	Index   int                   `json:"index"`
	Total   int                   `json:"total"`
	Company string                `json:"company"`
	Result  crawler.CompanyResult `json:"result"`
}

// DoneData closes a successful run.
type DoneData struct {
	Total      int    `json:"total"`
	OutputFile string `json:"output_file"`
}

// ErrorData closes a failed run.
type ErrorData struct {
	Message string `json:"message"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Seq < 0 {
		return errors.New("sequence must be >= 0")
	}
	var ok bool
	switch e.Type {
	case TypeStart:
		_, ok = e.Data.(StartData)
	case TypeCompanyStart:
		_, ok = e.Data.(CompanyStartData)
	case TypeStep:
		_, ok = e.Data.(StepData)
	case TypeCompanyDone:
		_, ok = e.Data.(CompanyDoneData)
	case TypeDone:
		_, ok = e.Data.(DoneData)
	case TypeError:
		_, ok = e.Data.(ErrorData)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if !ok {
		return fmt.Errorf("event %s carries %T", e.Type, e.Data)
	}
	return nil
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	return e.Type == TypeDone || e.Type == TypeError
}

type wireEvent struct {
	Type Type    `json:"type"`
	Data any     `json:"data"`
	TS   float64 `json:"ts"`
}

// MarshalJSON renders the event as {"type","data","ts"} with ts in fractional
// Unix seconds.
func (e Event) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(wireEvent{
		Type: e.Type,
		Data: e.Data,
		TS:   float64(e.TS.UnixNano()) / float64(time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
