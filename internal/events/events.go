package events

import (
	"encoding/json"
	"time"
)

// Event types published while a pass runs.
const (
	CrawlPageDone   = "crawl.page_done"
	CrawlRecord     = "crawl.record"
	CrawlFlush      = "crawl.flush"
	CrawlFinished   = "crawl.finished"
	QualifyLead     = "qualify.lead"
	QualifyFinished = "qualify.finished"
	SchemaVersion   = 1
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type PageDone struct {
	Page      int `json:"page"`
	Links     int `json:"links"`
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
}

type Record struct {
	Page        int    `json:"page"`
	CompanyName string `json:"company_name"`
	URL         string `json:"url"`
}

type Flush struct {
	Page  int    `json:"page"`
	Rows  int    `json:"rows"`
	Sheet string `json:"sheet"`
}

type Lead struct {
	CompanyName   string `json:"company_name"`
	Location      string `json:"location"`
	Qualification string `json:"qualification"`
}

type Summary struct {
	Pages     int `json:"pages,omitempty"`
	Records   int `json:"records"`
	Written   int `json:"written"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
	ElapsedMS int `json:"elapsed_ms"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Parse decodes an event produced by MakeEvent.
func Parse(s string) (Event, error) {
	var e Event
	err := json.Unmarshal([]byte(s), &e)
	return e, err
}
