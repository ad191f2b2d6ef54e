package compliance

// Region classifies a country for compliance gating.
type Region uint8

const (
	RegionNone Region = iota
	RegionUS
	RegionEU
	RegionForbidden
	RegionJP
)

var regionNames = map[Region]string{
	RegionNone:      "none",
	RegionUS:        "us",
	RegionEU:        "eu",
	RegionForbidden: "forbidden",
	RegionJP:        "jp",
}

func (r Region) String() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRegion maps a wire name to a Region.
func ParseRegion(name string) (Region, bool) {
	for region, n := range regionNames {
		if n == name {
			return region, true
		}
	}
	return RegionNone, false
}
