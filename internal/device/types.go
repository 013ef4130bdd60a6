package device

import "time"

// Type classifies an appliance and determines which control dimensions are
// valid. Air conditioners and heaters carry a temperature setpoint; lights
// and fans carry a level. Fields outside a device's type are ignored.
type Type string

// Type constants.
const (
	TypeAirConditioner Type = "air_conditioner"
	TypeHeater         Type = "heater"
	TypeLight          Type = "light"
	TypeFan            Type = "fan"
	TypeOther          Type = "other"
)

// AllTypes returns all valid device type values.
func AllTypes() []Type {
	return []Type{TypeAirConditioner, TypeHeater, TypeLight, TypeFan, TypeOther}
}

// Control bounds enforced centrally by Registry.Apply.
const (
	// MinLevel and MaxLevel bound light brightness and fan speed.
	MinLevel = 0
	MaxLevel = 100

	// MinTemperatureC and MaxTemperatureC bound setpoints for air
	// conditioners and heaters.
	MinTemperatureC = 10
	MaxTemperatureC = 32
)

// Device represents a controllable household appliance.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room"`
	Type Type   `json:"type"`

	// IsOn gates whether RatedPowerWatts counts toward aggregate usage.
	IsOn bool `json:"is_on"`

	// RatedPowerWatts is the constant draw while the device is on.
	RatedPowerWatts int `json:"rated_power_watts"`

	// TemperatureC is the setpoint for air conditioners and heaters.
	TemperatureC *int `json:"temperature_c,omitempty"`

	// Level is brightness or speed in [0,100] for lights and fans.
	Level *int `json:"level,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTemperature reports whether the device type carries a temperature setpoint.
func (d *Device) HasTemperature() bool {
	return d.Type == TypeAirConditioner || d.Type == TypeHeater
}

// HasLevel reports whether the device type carries a level.
func (d *Device) HasLevel() bool {
	return d.Type == TypeLight || d.Type == TypeFan
}

// EffectiveWatts returns the device's contribution to aggregate draw.
// A device that is off draws nothing regardless of its rating.
func (d *Device) EffectiveWatts() int {
	if !d.IsOn {
		return 0
	}
	return d.RatedPowerWatts
}

// CurrentLevel returns the level, or 0 when unset.
func (d *Device) CurrentLevel() int {
	if d.Level == nil {
		return 0
	}
	return *d.Level
}

// Clone returns an independent copy of the device. Pointer fields are
// duplicated so modifications to the copy do not affect the original.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.TemperatureC != nil {
		t := *d.TemperatureC
		cpy.TemperatureC = &t
	}
	if d.Level != nil {
		l := *d.Level
		cpy.Level = &l
	}
	return &cpy
}

// Patch is a partial device update. Only non-nil fields are applied.
type Patch struct {
	IsOn         *bool `json:"is_on,omitempty"`
	TemperatureC *int  `json:"temperature_c,omitempty"`
	Level        *int  `json:"level,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p Patch) IsZero() bool {
	return p.IsOn == nil && p.TemperatureC == nil && p.Level == nil
}

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for building patches.
func Int(i int) *int { return &i }
