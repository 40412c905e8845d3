package signald

import (
	"encoding/json"
	"time"

	"signaldesk/internal/indicator"
	"signaldesk/internal/model"
)

// Snapshot is the latest computed state for one symbol. It is what the
// HTTP API returns and what gets published to Redis / WebSocket clients.
type Snapshot struct {
	Symbol     string           `json:"symbol"`
	Interval   string           `json:"interval"`
	LastClose  float64          `json:"lastClose"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	Bars       []model.Bar      `json:"bars"`
	Indicators indicator.Result `json:"indicators"`
}

// JSON returns the snapshot as JSON.
func (s Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}
