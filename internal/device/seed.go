package device

import "context"

// SeedDefaults registers a starter set of household devices when the
// registry is empty, so a fresh installation has something to control.
// Existing installations are left untouched.
func SeedDefaults(ctx context.Context, r *Registry) error {
	if r.Count() > 0 {
		return nil
	}

	defaults := []*Device{
		{
			ID:              "dev-lr-ac",
			Name:            "Living Room AC",
			Room:            "Living Room",
			Type:            TypeAirConditioner,
			IsOn:            true,
			RatedPowerWatts: 1200,
			TemperatureC:    Int(24),
		},
		{
			ID:              "dev-br-heater",
			Name:            "Bedroom Heater",
			Room:            "Bedroom",
			Type:            TypeHeater,
			IsOn:            false,
			RatedPowerWatts: 1500,
			TemperatureC:    Int(22),
		},
		{
			ID:              "dev-main-lights",
			Name:            "Main Lights",
			Room:            "Whole House",
			Type:            TypeLight,
			IsOn:            true,
			RatedPowerWatts: 60,
			Level:           Int(80),
		},
		{
			ID:              "dev-ceiling-fan",
			Name:            "Ceiling Fan",
			Room:            "Living Room",
			Type:            TypeFan,
			IsOn:            true,
			RatedPowerWatts: 45,
			Level:           Int(60),
		},
	}

	for _, d := range defaults {
		if _, err := r.Register(ctx, d); err != nil {
			return err
		}
	}

	r.logger.Info("seeded default devices", "count", len(defaults))
	return nil
}
