package retrieval

import (
	"strings"

	"github.com/homewarden/homewarden/internal/profile"
)

// deviceKeywords maps each device type to query phrases that indicate
// it. Matching is case-insensitive substring; multi-word phrases match
// non-tokenized (e.g. "water heater" inside "my water heater is cold").
// Order matters only for output stability, so the table is a slice.
var deviceKeywords = []struct {
	deviceType profile.DeviceType
	keywords   []string
}{
	{profile.DeviceFurnace, []string{"furnace", "heating system", "pilot light", "burner", "heat exchanger"}},
	{profile.DeviceThermostat, []string{"thermostat", "temperature setting", "heating schedule"}},
	{profile.DeviceEnergyMeter, []string{"energy meter", "smart meter", "electricity meter", "power meter"}},
	{profile.DeviceWaterSoftener, []string{"water softener", "softener salt", "brine tank", "hard water"}},
	{profile.DeviceWaterHeater, []string{"water heater", "hot water tank", "anode rod", "no hot water"}},
	{profile.DeviceHumidifier, []string{"humidifier", "humidity", "evaporator pad", "water panel"}},
	{profile.DeviceHRV, []string{"hrv", "heat recovery", "ventilator", "air exchanger", "fresh air system"}},
	{profile.DeviceAirConditioner, []string{"air conditioner", "air conditioning", "a/c", " ac ", "cooling system", "condenser", "refrigerant"}},
	{profile.DeviceAppliance, []string{"dishwasher", "washing machine", "dryer", "refrigerator", "fridge", "oven", "stove", "range hood"}},
}

// DetectDeviceTypes returns the device types whose keywords appear in
// the query, in registry order. An empty result means the caller should
// search unfiltered.
func DetectDeviceTypes(query string) []profile.DeviceType {
	// Pad so word-boundary phrases like " ac " can match at the edges.
	q := " " + strings.ToLower(query) + " "

	var detected []profile.DeviceType
	for _, entry := range deviceKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				detected = append(detected, entry.deviceType)
				break
			}
		}
	}
	return detected
}
