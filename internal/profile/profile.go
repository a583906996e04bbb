// Package profile models the house being advised on: its climate zone,
// building type, and installed equipment. The profile drives retrieval
// filtering (only search docs for devices the house actually has) and
// seasonal maintenance planning.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrProfileNotFound indicates the profile file does not exist.
	ErrProfileNotFound = errors.New("house profile not found")

	// ErrInvalidProfile indicates the profile file could not be parsed
	// or failed validation.
	ErrInvalidProfile = errors.New("invalid house profile")
)

// DeviceType categorizes home equipment. Document chunks carry one of
// these in their metadata, and house profiles key installed systems by it.
type DeviceType string

const (
	DeviceFurnace        DeviceType = "furnace"
	DeviceThermostat     DeviceType = "thermostat"
	DeviceEnergyMeter    DeviceType = "energy_meter"
	DeviceWaterSoftener  DeviceType = "water_softener"
	DeviceWaterHeater    DeviceType = "water_heater"
	DeviceHumidifier     DeviceType = "humidifier"
	DeviceHRV            DeviceType = "hrv" // heat recovery ventilator
	DeviceAirConditioner DeviceType = "air_conditioner"
	DeviceAppliance      DeviceType = "appliance"
	DeviceOther          DeviceType = "other"
)

// AllDeviceTypes lists every known device type.
var AllDeviceTypes = []DeviceType{
	DeviceFurnace,
	DeviceThermostat,
	DeviceEnergyMeter,
	DeviceWaterSoftener,
	DeviceWaterHeater,
	DeviceHumidifier,
	DeviceHRV,
	DeviceAirConditioner,
	DeviceAppliance,
	DeviceOther,
}

// ParseDeviceType converts a string to a DeviceType, case-insensitively.
func ParseDeviceType(s string) (DeviceType, bool) {
	dt := DeviceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllDeviceTypes {
		if dt == known {
			return known, true
		}
	}
	return "", false
}

// Season identifies the time of year for maintenance planning.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// ParseSeason converts a string to a Season, case-insensitively.
func ParseSeason(s string) (Season, error) {
	switch Season(strings.ToLower(strings.TrimSpace(s))) {
	case SeasonSpring:
		return SeasonSpring, nil
	case SeasonSummer:
		return SeasonSummer, nil
	case SeasonFall:
		return SeasonFall, nil
	case SeasonWinter:
		return SeasonWinter, nil
	default:
		return "", fmt.Errorf("%w: unknown season %q", ErrInvalidProfile, s)
	}
}

// ClimateZone is a simplified IECC climate classification. The zone
// shifts maintenance priorities: cold zones emphasize freeze protection,
// hot-humid zones emphasize moisture and mold.
type ClimateZone string

const (
	ClimateCold     ClimateZone = "cold"
	ClimateMixed    ClimateZone = "mixed"
	ClimateHotHumid ClimateZone = "hot_humid"
	ClimateHotDry   ClimateZone = "hot_dry"
)

// HouseType classifies the residential building.
type HouseType string

const (
	HouseSingleFamily HouseType = "single_family"
	HouseTownhouse    HouseType = "townhouse"
	HouseCondo        HouseType = "condo"
	HouseDuplex       HouseType = "duplex"
)

// InstalledSystem holds optional details about one installed device.
// The device type itself is the map key in HouseProfile.Systems, so a
// nil entry just marks presence.
type InstalledSystem struct {
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"` // "gas", "electric", "propane"
	InstallYear  int    `json:"install_year,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// HouseProfile describes a house and its installed systems.
//
// Systems maps device-type strings to optional details. Presence of a
// key means the house has that system; the value may be nil.
type HouseProfile struct {
	Name          string                      `json:"name"`
	YearBuilt     int                         `json:"year_built,omitempty"`
	SquareFootage int                         `json:"square_footage,omitempty"`
	ClimateZone   ClimateZone                 `json:"climate_zone"`
	HouseType     HouseType                   `json:"house_type,omitempty"`
	Systems       map[string]*InstalledSystem `json:"systems,omitempty"`
}

// HasSystem reports whether the given device type is installed.
func (p *HouseProfile) HasSystem(dt DeviceType) bool {
	_, ok := p.Systems[string(dt)]
	return ok
}

// InstalledDeviceTypes returns the installed device types in a stable
// order. Unknown keys in the systems map are skipped.
func (p *HouseProfile) InstalledDeviceTypes() []DeviceType {
	result := make([]DeviceType, 0, len(p.Systems))
	for key := range p.Systems {
		if dt, ok := ParseDeviceType(key); ok {
			result = append(result, dt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// SystemSummary returns a one-line description of an installed system
// for prompt context, e.g. "furnace: Carrier OM9GFRC (gas, installed 2020)".
func (p *HouseProfile) SystemSummary(dt DeviceType) string {
	sys, ok := p.Systems[string(dt)]
	if !ok {
		return ""
	}
	if sys == nil {
		return string(dt)
	}

	var b strings.Builder
	b.WriteString(string(dt))
	var details []string
	if sys.Manufacturer != "" || sys.Model != "" {
		details = append(details, strings.TrimSpace(sys.Manufacturer+" "+sys.Model))
	}
	if sys.FuelType != "" {
		details = append(details, sys.FuelType)
	}
	if sys.InstallYear > 0 {
		details = append(details, fmt.Sprintf("installed %d", sys.InstallYear))
	}
	if len(details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(details, ", "))
	}
	return b.String()
}

// Validate checks the profile for the fields the workflows rely on.
func (p *HouseProfile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	switch p.ClimateZone {
	case ClimateCold, ClimateMixed, ClimateHotHumid, ClimateHotDry:
	default:
		return fmt.Errorf("%w: unknown climate zone %q", ErrInvalidProfile, p.ClimateZone)
	}
	if p.HouseType == "" {
		p.HouseType = HouseSingleFamily
	}
	switch p.HouseType {
	case HouseSingleFamily, HouseTownhouse, HouseCondo, HouseDuplex:
	default:
		return fmt.Errorf("%w: unknown house type %q", ErrInvalidProfile, p.HouseType)
	}
	return nil
}
