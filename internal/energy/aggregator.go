package energy

import (
	"time"

	"github.com/hearthside/hearthside-core/internal/device"
)

// Tier classifies total household draw into a coarse usage band.
type Tier string

// Usage tiers, ordered by rising draw.
const (
	TierExcellent Tier = "Excellent"
	TierGood      Tier = "Good"
	TierFair      Tier = "Fair"
	TierHighUsage Tier = "High Usage"
)

// Tier thresholds in watts.
const (
	tierExcellentBelow = 1000
	tierGoodBelow      = 2000
	tierFairBelow      = 3000
)

// Projection model constants. Daily energy assumes current draw held for a
// full day; a month is a flat 30 days.
const (
	hoursPerDay      = 24
	daysPerMonth     = 30
	wattsPerKilowatt = 1000
)

// Tariff holds the pricing parameters for cost projections.
type Tariff struct {
	// UnitRate is the cost per kWh.
	UnitRate float64

	// BaselineMonthlyCost is the reference bill used to derive projected
	// savings. A projected cost above the baseline yields zero savings,
	// never a negative value.
	BaselineMonthlyCost float64
}

// DeviceShare is one device's contribution to a snapshot.
type DeviceShare struct {
	DeviceID string  `json:"device_id"`
	Name     string  `json:"name"`
	Room     string  `json:"room"`
	IsOn     bool    `json:"is_on"`
	Watts    int     `json:"watts"`
	SharePct float64 `json:"share_pct"`
}

// Snapshot is a derived view of household energy usage at a point in time.
type Snapshot struct {
	TotalWatts       int           `json:"total_watts"`
	DailyKWh         float64       `json:"daily_kwh"`
	MonthlyCost      float64       `json:"monthly_cost"`
	ProjectedSavings float64       `json:"projected_savings"`
	Tier             Tier          `json:"tier"`
	Shares           []DeviceShare `json:"shares"`
	TakenAt          time.Time     `json:"taken_at"`
}

// Compute derives an energy snapshot from the given device states. Only
// devices that are on contribute their rated draw; everything else follows
// arithmetically from the total and the tariff. Compute never mutates its
// inputs and the same inputs always yield the same snapshot.
func Compute(devices []device.Device, tariff Tariff, now time.Time) Snapshot {
	total := 0
	for i := range devices {
		total += devices[i].EffectiveWatts()
	}

	dailyKWh := float64(total) * hoursPerDay / wattsPerKilowatt
	monthlyCost := dailyKWh * daysPerMonth * tariff.UnitRate

	savings := tariff.BaselineMonthlyCost - monthlyCost
	if savings < 0 {
		savings = 0
	}

	shares := make([]DeviceShare, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		watts := d.EffectiveWatts()

		pct := 0.0
		if total > 0 {
			pct = float64(watts) / float64(total) * 100
		}
		shares = append(shares, DeviceShare{
			DeviceID: d.ID,
			Name:     d.Name,
			Room:     d.Room,
			IsOn:     d.IsOn,
			Watts:    watts,
			SharePct: pct,
		})
	}

	return Snapshot{
		TotalWatts:       total,
		DailyKWh:         dailyKWh,
		MonthlyCost:      monthlyCost,
		ProjectedSavings: savings,
		Tier:             TierFor(total),
		Shares:           shares,
		TakenAt:          now.UTC(),
	}
}

// TierFor maps a total draw in watts to its usage tier.
func TierFor(totalWatts int) Tier {
	switch {
	case totalWatts < tierExcellentBelow:
		return TierExcellent
	case totalWatts < tierGoodBelow:
		return TierGood
	case totalWatts < tierFairBelow:
		return TierFair
	default:
		return TierHighUsage
	}
}
