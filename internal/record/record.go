// Package record defines the two persisted telemetry kinds, analytics
// events and crash reports, along with the breadcrumb markers attached
// to crashes and the wire payloads submitted to the collector.
package record

import "time"

// Category classifies a breadcrumb by the kind of activity it marks.
// Values are the stable lowercase tokens used on the wire and in stored
// records; never reuse or rename them.
type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryUserAction Category = "user_action"
	CategoryNetwork    Category = "network"
	CategoryError      Category = "error"
	CategoryCustom     Category = "custom"
)

// Categories lists every valid category, in declaration order.
func Categories() []Category {
	return []Category{
		CategoryNavigation,
		CategoryUserAction,
		CategoryNetwork,
		CategoryError,
		CategoryCustom,
	}
}

// APIValue returns the token submitted to the collector. Unknown or
// empty categories degrade to the custom token rather than producing an
// out-of-enum value on the wire.
func (c Category) APIValue() string {
	switch c {
	case CategoryNavigation, CategoryUserAction, CategoryNetwork, CategoryError:
		return string(c)
	default:
		return string(CategoryCustom)
	}
}

// Breadcrumb is a lightweight timestamped diagnostic marker. Immutable
// once created; the trail buffer owns its copies until a crash snapshot
// copies them into a CrashReport.
type Breadcrumb struct {
	Timestamp int64    `json:"timestamp"` // unix millis
	Message   string   `json:"message"`
	Category  Category `json:"category"`
}

// NewBreadcrumb stamps a breadcrumb with the current time.
func NewBreadcrumb(message string, category Category) Breadcrumb {
	return Breadcrumb{
		Timestamp: time.Now().UnixMilli(),
		Message:   message,
		Category:  category,
	}
}

// AnalyticsEvent is one discrete occurrence reported by the host
// application. Immutable after creation.
type AnalyticsEvent struct {
	SessionID string             `json:"session_id"`
	Name      string             `json:"name"`
	Tags      map[string]string  `json:"tags,omitempty"`
	Fields    map[string]float64 `json:"fields,omitempty"`
	Time      int64              `json:"time"` // unix millis
}

// CrashReport is one captured failure. Fatal is true for
// uncaught-panic captures; handled (non-fatal) reports are permitted by
// the model for hosts that report recovered errors.
type CrashReport struct {
	SessionID   string            `json:"session_id"`
	Timestamp   int64             `json:"timestamp"` // unix millis
	Thread      string            `json:"thread"`
	Stacktrace  string            `json:"stacktrace"`
	Fatal       bool              `json:"is_fatal"`
	Context     map[string]string `json:"context,omitempty"`
	Breadcrumbs []Breadcrumb      `json:"breadcrumbs,omitempty"`
}

// FatalityMarker is the filename token distinguishing fatal from
// handled crashes, letting tooling filter without deserializing.
func (c *CrashReport) FatalityMarker() string {
	if c.Fatal {
		return "fatal"
	}
	return "exception"
}
