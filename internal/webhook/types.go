package webhook

import "time"

// Event types that can trigger webhooks
const (
	EventProfileSwitched = "profile.switched"
	EventAutoModeChanged = "automode.changed"
	EventPassFailed      = "pass.failed"
)

// Event is the payload delivered to subscribed endpoints.
type Event struct {
	Type      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	RuleID    string         `json:"ruleId,omitempty"`
	ProfileID string         `json:"profileId,omitempty"`
	Status    string         `json:"status,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Endpoint is a subscriber. An empty Events list subscribes to everything.
type Endpoint struct {
	URL        string        `json:"url" yaml:"url"`
	Secret     string        `json:"secret,omitempty" yaml:"secret,omitempty"`
	Events     []string      `json:"events,omitempty" yaml:"events,omitempty"`
	MaxRetries int           `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (e Endpoint) wants(eventType string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, t := range e.Events {
		if t == eventType {
			return true
		}
	}
	return false
}
