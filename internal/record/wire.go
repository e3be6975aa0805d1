package record

// Wire payloads for the two collector endpoints. Field names follow the
// collector's snake_case contract and are deliberately decoupled from
// the storage encoding: stored files can round-trip through SDK
// upgrades while the wire body tracks the server.

// Environment is the device/app metadata attached to every batch.
type Environment struct {
	Hostname   string `json:"hostname,omitempty"`
	OS         string `json:"os"`
	OSVersion  string `json:"os_version,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Arch       string `json:"arch"`
	AppVersion string `json:"app_version,omitempty"`
	TotalMemMB uint64 `json:"total_mem_mb,omitempty"`
}

// EventBatch is the body POSTed to the events endpoint.
type EventBatch struct {
	SessionID   string      `json:"session_id"`
	Environment Environment `json:"environment"`
	Events      []WireEvent `json:"events"`
}

// CrashBatch is the body POSTed to the crashes endpoint.
type CrashBatch struct {
	SessionID   string      `json:"session_id"`
	Environment Environment `json:"environment"`
	Crashes     []WireCrash `json:"crashes"`
}

// WireEvent is one event as submitted to the collector.
type WireEvent struct {
	Name   string             `json:"name"`
	Tags   map[string]string  `json:"tags,omitempty"`
	Fields map[string]float64 `json:"fields,omitempty"`
	Time   int64              `json:"time"`
}

// WireCrash is one crash report as submitted to the collector.
type WireCrash struct {
	Timestamp   int64             `json:"timestamp"`
	Thread      string            `json:"thread"`
	Stacktrace  string            `json:"stacktrace"`
	IsFatal     bool              `json:"is_fatal"`
	Context     map[string]string `json:"context,omitempty"`
	Breadcrumbs []WireBreadcrumb  `json:"breadcrumbs,omitempty"`
}

// WireBreadcrumb is one breadcrumb inside a submitted crash.
type WireBreadcrumb struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	Category  string `json:"category"`
}

// ToWire converts a stored event to its wire form. The session id moves
// to the batch envelope and is dropped from the individual record.
func (e *AnalyticsEvent) ToWire() WireEvent {
	return WireEvent{
		Name:   e.Name,
		Tags:   e.Tags,
		Fields: e.Fields,
		Time:   e.Time,
	}
}

// ToWire converts a stored crash report to its wire form.
func (c *CrashReport) ToWire() WireCrash {
	w := WireCrash{
		Timestamp:  c.Timestamp,
		Thread:     c.Thread,
		Stacktrace: c.Stacktrace,
		IsFatal:    c.Fatal,
		Context:    c.Context,
	}
	for _, b := range c.Breadcrumbs {
		w.Breadcrumbs = append(w.Breadcrumbs, WireBreadcrumb{
			Timestamp: b.Timestamp,
			Message:   b.Message,
			Category:  b.Category.APIValue(),
		})
	}
	return w
}
