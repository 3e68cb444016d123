package types

import "time"

// Operation names one of the asynchronous start/poll pairs.
type Operation string

const (
	OperationStatusUpdate Operation = "status_update"
	OperationClimateStart Operation = "climate_start"
	OperationClimateStop  Operation = "climate_stop"
)

// Operations lists every supported operation in a stable order.
var Operations = []Operation{
	OperationStatusUpdate,
	OperationClimateStart,
	OperationClimateStop,
}

// Valid reports whether o is a supported operation.
func (o Operation) Valid() bool {
	for _, op := range Operations {
		if op == o {
			return true
		}
	}
	return false
}

// Result is a normalized, ready operation result. Optional fields are nil when
// the server did not send them.
type Result struct {
	Operation       Operation  `json:"operation"`
	Timestamp       time.Time  `json:"timestamp,omitzero"`
	CruisingRangeKM *float64   `json:"cruisingRangeKM,omitempty"`
	HVACRunning     *bool      `json:"hvacRunning,omitempty"`
	ACContinueUntil *time.Time `json:"acContinueUntil,omitempty"`
}

// BatteryRecord is the latest stored battery record. Only the raw payload is
// exposed until the record's fields are pinned down.
type BatteryRecord struct {
	Timestamp time.Time      `json:"timestamp,omitzero"`
	Raw       map[string]any `json:"raw"`
}

// Action records a remote operation issued against a vehicle.
type Action struct {
	Timestamp time.Time `json:"timestamp"`
	VIN       string    `json:"vin"`
	Operation Operation `json:"operation"`
	ResultKey string    `json:"resultKey,omitempty"`
	Error     string    `json:"error,omitempty"`
}
