package carwings

import (
	"fmt"
	"time"

	"github.com/leafremote/leafremote/pkg/types"
)

// vehicleUnreachable is reported in the operation result when the vehicle
// could not be reached over its cellular link.
const vehicleUnreachable = "ELECTRIC_WAVE_ABNORMAL"

// serverTimeLayout is the layout of timestamps in operation results. They are
// in UTC.
const serverTimeLayout = "2006-01-02 15:04:05"

// CheckReachable fails with KindVehicleUnreachable when either spelling of the
// operation result field carries the unreachable sentinel.
func CheckReachable(op string, p Payload) error {
	for _, k := range []string{"operationResult", "OperationResult"} {
		if v, _ := p.String(k); v == vehicleUnreachable {
			return &Error{Kind: KindVehicleUnreachable, Op: op, Message: v}
		}
	}
	return nil
}

// Normalizer turns ready poll payloads into results.
type Normalizer struct {
	// Now is used for fields relative to the current time. Nil means time.Now.
	Now func() time.Time
}

// Normalize decodes a ready payload for op. Accepted fields:
//
//   - operationResult / OperationResult: the unreachable sentinel fails the
//     whole payload before anything else is looked at
//   - cruisingRangeAcOff, else crusingRangeAcOn (sic): metres, number or
//     numeric string
//   - timeStamp / TimeStamp / timestamp: "2006-01-02 15:04:05" in UTC or RFC 3339
//   - hvacStatus / HvacStatus: "ON" means running (climate start and stop)
//   - acContinueTime / AcContinueTime: minutes from now (climate start)
//
// Status update payloads are not decoded and fail with KindNotImplemented.
func (n Normalizer) Normalize(op types.Operation, p Payload) (*types.Result, error) {
	if err := CheckReachable(string(op), p); err != nil {
		return nil, err
	}

	switch op {
	case types.OperationClimateStart, types.OperationClimateStop:
	case types.OperationStatusUpdate:
		return nil, &Error{Kind: KindNotImplemented, Op: string(op), Message: "status update fields are not decoded, use the raw payload"}
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	res := &types.Result{Operation: op}

	ts, err := parseTimestamp(p)
	if err != nil {
		return nil, &Error{Kind: KindInvalidBody, Op: string(op), Err: err}
	}
	res.Timestamp = ts

	if km, ok := cruisingRangeKM(p); ok {
		res.CruisingRangeKM = &km
	}

	running := false
	if v, _ := p.String("hvacStatus", "HvacStatus"); v == "ON" {
		running = true
	}
	res.HVACRunning = &running

	if op == types.OperationClimateStart {
		if mins, ok := p.Number("acContinueTime", "AcContinueTime"); ok {
			until := n.now().Add(time.Duration(mins * float64(time.Minute))).UTC()
			res.ACContinueUntil = &until
		}
	}
	return res, nil
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// cruisingRangeKM prefers the range with climate control off. The "on" key is
// misspelled by the server and must stay that way.
func cruisingRangeKM(p Payload) (float64, bool) {
	m, ok := p.Number("cruisingRangeAcOff")
	if !ok {
		m, ok = p.Number("crusingRangeAcOn")
	}
	if !ok {
		return 0, false
	}
	return m / 1000, true
}

func parseTimestamp(p Payload) (time.Time, error) {
	raw, ok := p.String("timeStamp", "TimeStamp", "timestamp")
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(serverTimeLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
	}
	return t.UTC(), nil
}
