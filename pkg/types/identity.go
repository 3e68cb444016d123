package types

// Identity holds the fields the server hands back after a successful login.
type Identity struct {
	UserID    string `json:"userID"`
	DCMID     string `json:"dcmID"`
	TimeZone  string `json:"timeZone"`
	Language  string `json:"language"`
	VIN       string `json:"vin"`
	Nickname  string `json:"nickname"`
	BoundTime string `json:"boundTime,omitempty"`
}

// Vehicle is a single entry of the vehicle list attached to an account.
type Vehicle struct {
	VIN      string `json:"vin"`
	Nickname string `json:"nickname"`
}

// LoginResult is the normalized outcome of connecting a session.
type LoginResult struct {
	Region   Region    `json:"region"`
	Identity Identity  `json:"identity"`
	Vehicles []Vehicle `json:"vehicles"`
}
