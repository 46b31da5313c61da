package quote

import (
	"fmt"
	"strings"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
)

// SavingsEstimate is the annual energy impact of the panel versus an
// uninsulated metal-sheet reference construction.
type SavingsEstimate struct {
	ClimateZone string  `json:"climate_zone"`
	AnnualKWh   float64 `json:"annual_kwh"`
	AnnualUSD   float64 `json:"annual_usd"`
}

// referenceUValue is a single metal sheet with no insulation, W/m2K.
const referenceUValue = 5.8

// energyPriceUSDPerKWh approximates the residential UTE tariff.
const energyPriceUSDPerKWh = 0.22

// degreeHours per year by zone, in kKh. Rough values for Uruguay's
// climate bands; the estimate is indicative, not an energy audit.
var degreeHoursKKh = map[string]float64{
	"norte":  52,
	"centro": 58,
	"sur":    64,
}

// EstimateSavings computes annual kWh and USD saved for the covered area.
func EstimateSavings(panel catalog.Panel, areaM2 float64, zone string) (*SavingsEstimate, error) {
	if panel.UValue <= 0 {
		return nil, fmt.Errorf("panel %s has no u_value; savings not estimated", panel.SKU)
	}
	if areaM2 <= 0 {
		return nil, fmt.Errorf("area must be positive")
	}

	zone = strings.ToLower(strings.TrimSpace(zone))
	kkh, ok := degreeHoursKKh[zone]
	if !ok {
		return nil, fmt.Errorf("unknown climate zone %q", zone)
	}

	deltaU := referenceUValue - panel.UValue
	if deltaU <= 0 {
		return &SavingsEstimate{ClimateZone: zone}, nil
	}

	// Q [kWh] = deltaU [W/m2K] * area [m2] * degree-hours [kKh]
	kwh := deltaU * areaM2 * kkh
	return &SavingsEstimate{
		ClimateZone: zone,
		AnnualKWh:   round2(kwh),
		AnnualUSD:   round2(kwh * energyPriceUSDPerKWh),
	}, nil
}
