package carwings

import (
	"github.com/leafremote/leafremote/pkg/types"
)

// parseLogin extracts the identity from a login payload. Accepted layouts:
//
//   - the vehicle list under VehicleInfoList.vehicleInfo (or .VehicleInfo),
//     which is preferred, or a top-level vehicleInfo (or VehicleInfo) list;
//     a bare object instead of a list counts as one entry
//   - custom_sessionid on the first vehicle entry, else at the top level
//   - CustomerInfo (or customerInfo) with Timezone, Language, Nickname,
//     UserInfo.UserId and a VehicleInfo block carrying VIN, DCMID and
//     UserVehicleBoundTime
//   - vehicle.profile with gdcUserId, dcmId and nickname, preferred over the
//     CustomerInfo equivalents
func parseLogin(p Payload) (*types.LoginResult, string, error) {
	list := p
	if nested, ok := p.Object("VehicleInfoList", "vehicleInfoList"); ok {
		if _, ok := nested.First("vehicleInfo", "VehicleInfo"); ok {
			list = nested
		}
	}
	vehicles := list.List("vehicleInfo", "VehicleInfo")
	first, _ := list.First("vehicleInfo", "VehicleInfo")

	customer, _ := p.Object("CustomerInfo", "customerInfo")
	customerVehicle, _ := customer.Object("VehicleInfo", "vehicleInfo")
	userInfo, _ := customer.Object("UserInfo", "userInfo")
	var profile Payload
	if v, ok := p.Object("vehicle"); ok {
		profile, _ = v.Object("profile")
	}

	id := types.Identity{
		UserID:    firstString(profile.lookup("gdcUserId"), userInfo.lookup("UserId", "userId")),
		DCMID:     firstString(profile.lookup("dcmId"), customerVehicle.lookup("DCMID", "dcmId")),
		TimeZone:  firstString(customer.lookup("Timezone", "timezone", "TimeZone")),
		Language:  firstString(customer.lookup("Language", "language")),
		VIN:       firstString(first.lookup("vin", "VIN"), customerVehicle.lookup("VIN", "vin")),
		Nickname:  firstString(first.lookup("nickname", "Nickname"), customer.lookup("Nickname", "nickname"), profile.lookup("nickname")),
		BoundTime: firstString(customerVehicle.lookup("UserVehicleBoundTime", "userVehicleBoundTime")),
	}
	sessionID := firstString(first.lookup("custom_sessionid"), p.lookup("custom_sessionid"))

	if id.VIN == "" {
		return nil, "", &Error{Kind: KindInvalidBody, Op: endpointLogin, Message: "no vehicle in login response"}
	}
	if sessionID == "" {
		return nil, "", &Error{Kind: KindInvalidBody, Op: endpointLogin, Message: "no custom_sessionid in login response"}
	}

	res := &types.LoginResult{Identity: id}
	for _, v := range vehicles {
		vin, _ := v.String("vin", "VIN")
		nick, _ := v.String("nickname", "Nickname")
		res.Vehicles = append(res.Vehicles, types.Vehicle{VIN: vin, Nickname: nick})
	}
	if len(res.Vehicles) == 0 {
		res.Vehicles = []types.Vehicle{{VIN: id.VIN, Nickname: id.Nickname}}
	}
	return res, sessionID, nil
}

// lookup is String without the presence flag.
func (p Payload) lookup(keys ...string) string {
	s, _ := p.String(keys...)
	return s
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
