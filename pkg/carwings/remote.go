package carwings

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/types"
)

// Remote issues operations against one vehicle of a connected session.
type Remote struct {
	session *Session
	vin     string
}

// VIN returns the vehicle the handle is bound to.
func (r *Remote) VIN() string {
	return r.vin
}

func (r *Remote) params() url.Values {
	s := r.session
	id := s.Identity()
	tz := s.timeZone
	if tz == "" {
		tz = id.TimeZone
	}

	v := url.Values{}
	v.Set("RegionCode", string(s.region))
	v.Set("VIN", r.vin)
	v.Set("lg", s.language)
	v.Set("tz", tz)
	v.Set("DCMID", id.DCMID)
	return v
}

// Start issues the start call of op and returns its result key.
func (r *Remote) Start(ctx context.Context, op types.Operation) (string, error) {
	ep, ok := operationEndpoints[op]
	if !ok {
		return "", fmt.Errorf("unknown operation %q", op)
	}

	p, err := r.session.Post(ctx, ep.start, r.params())
	if err != nil {
		return "", &Error{Kind: KindStartFailed, Op: ep.start, Err: err}
	}
	key, _ := p.String("resultKey")
	if key == "" {
		return "", &Error{Kind: KindStartFailed, Op: ep.start, Message: "no resultKey in response"}
	}
	log.Ctx(ctx).DebugContext(ctx, "started carwings operation",
		slog.String("operation", string(op)),
		slog.String("resultKey", key),
	)
	return key, nil
}

// Poll checks once whether the operation identified by resultKey finished. A
// not ready result is returned with a nil error. For status updates a ready
// poll returns the raw payload together with a KindNotImplemented error.
func (r *Remote) Poll(ctx context.Context, op types.Operation, resultKey string) (PollResult, error) {
	ep, ok := operationEndpoints[op]
	if !ok {
		return PollResult{}, fmt.Errorf("unknown operation %q", op)
	}

	params := r.params()
	params.Set("resultKey", resultKey)
	p, err := r.session.Post(ctx, ep.poll, params)
	if err != nil {
		return PollResult{}, err
	}

	if flag, _ := p.String("responseFlag"); flag != responseFlagReady {
		log.Ctx(ctx).DebugContext(ctx, "carwings operation not ready",
			slog.String("operation", string(op)),
			slog.String("responseFlag", flag),
		)
		return PollResult{}, nil
	}

	n := Normalizer{Now: r.session.now}
	res, err := n.Normalize(op, p)
	if err != nil {
		if KindOf(err) == KindNotImplemented {
			return PollResult{Ready: true, Raw: p}, err
		}
		return PollResult{}, err
	}
	return PollResult{Ready: true, Result: res, Raw: p}, nil
}

// RequestUpdate asks the vehicle to refresh its status.
func (r *Remote) RequestUpdate(ctx context.Context) (string, error) {
	return r.Start(ctx, types.OperationStatusUpdate)
}

// StatusFromUpdate polls a RequestUpdate.
func (r *Remote) StatusFromUpdate(ctx context.Context, resultKey string) (PollResult, error) {
	return r.Poll(ctx, types.OperationStatusUpdate, resultKey)
}

// StartClimateControl turns the climate control on.
func (r *Remote) StartClimateControl(ctx context.Context) (string, error) {
	return r.Start(ctx, types.OperationClimateStart)
}

// StartClimateControlResult polls a StartClimateControl.
func (r *Remote) StartClimateControlResult(ctx context.Context, resultKey string) (PollResult, error) {
	return r.Poll(ctx, types.OperationClimateStart, resultKey)
}

// StopClimateControl turns the climate control off.
func (r *Remote) StopClimateControl(ctx context.Context) (string, error) {
	return r.Start(ctx, types.OperationClimateStop)
}

// StopClimateControlResult polls a StopClimateControl.
func (r *Remote) StopClimateControlResult(ctx context.Context, resultKey string) (PollResult, error) {
	return r.Poll(ctx, types.OperationClimateStop, resultKey)
}

// LatestBatteryStatus returns the last battery record the server holds,
// without contacting the vehicle.
func (r *Remote) LatestBatteryStatus(ctx context.Context) (*types.BatteryRecord, error) {
	p, err := r.session.Post(ctx, endpointBatteryRecords, r.params())
	if err != nil {
		return nil, err
	}
	if err := CheckReachable(endpointBatteryRecords, p); err != nil {
		return nil, err
	}

	rec := &types.BatteryRecord{Raw: map[string]any(p)}
	status, ok := p.Object("BatteryStatusRecords")
	if !ok {
		status = p
	}
	ts, err := parseTimestamp(status)
	if err != nil {
		return nil, &Error{Kind: KindInvalidBody, Op: endpointBatteryRecords, Err: err}
	}
	rec.Timestamp = ts
	return rec, nil
}

// Wait polls op until it is ready using the caller's cadence. See Wait.
func (r *Remote) Wait(ctx context.Context, op types.Operation, resultKey string, interval time.Duration, attempts int) (PollResult, error) {
	var last PollResult
	err := Wait(ctx, interval, attempts, func(ctx context.Context) (bool, error) {
		res, err := r.Poll(ctx, op, resultKey)
		last = res
		if err != nil {
			return false, err
		}
		return res.Ready, nil
	})
	return last, err
}
