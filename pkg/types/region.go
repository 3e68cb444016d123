package types

// Region selects the geographic deployment of the carwings backend. Values
// outside the known set are passed to the server as-is.
type Region string

const (
	RegionUSA       Region = "NNA"
	RegionEurope    Region = "NE"
	RegionCanada    Region = "NCI"
	RegionAustralia Region = "NMA"
	RegionJapan     Region = "NML"

	DefaultRegion = RegionUSA
)

var regionNames = map[Region]string{
	RegionUSA:       "USA",
	RegionEurope:    "Europe",
	RegionCanada:    "Canada",
	RegionAustralia: "Australia",
	RegionJapan:     "Japan",
}

// Known reports whether r is one of the confirmed region codes.
func (r Region) Known() bool {
	_, ok := regionNames[r]
	return ok
}

// Name returns a human readable name, or the raw code for unconfirmed regions.
func (r Region) Name() string {
	if n, ok := regionNames[r]; ok {
		return n
	}
	return string(r)
}
