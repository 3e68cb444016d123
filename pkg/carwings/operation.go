package carwings

import (
	"github.com/leafremote/leafremote/pkg/types"
)

// endpoints pairs the start and poll endpoint of every asynchronous
// operation. A result key is only valid for the pair that issued it.
type endpoints struct {
	start string
	poll  string
}

var operationEndpoints = map[types.Operation]endpoints{
	types.OperationStatusUpdate: {start: "BatteryStatusCheckRequest.php", poll: "BatteryStatusCheckResultRequest.php"},
	types.OperationClimateStart: {start: "ACRemoteRequest.php", poll: "ACRemoteResult.php"},
	types.OperationClimateStop:  {start: "ACRemoteOffRequest.php", poll: "ACRemoteOffResult.php"},
}

const (
	responseFlagReady = "1"

	endpointBatteryRecords = "BatteryStatusRecordsRequest.php"
)

// PollResult is the outcome of a single poll. Ready is false while the vehicle
// is still being contacted; that is not an error.
type PollResult struct {
	Ready  bool
	Result *types.Result
	// Raw is the undecoded payload of a ready poll. For status updates it is
	// the only output.
	Raw Payload
}
