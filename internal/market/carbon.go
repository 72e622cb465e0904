package market

import (
	"encoding/json"
	"fmt"
	"time"
)

// carbonTimeLayout matches the Carbon Intensity API's minute-precision UTC stamps.
const carbonTimeLayout = "2006-01-02T15:04Z"

// CarbonIntensity is a half-hourly grid carbon intensity reading in gCO2/kWh.
type CarbonIntensity struct {
	IntervalStart time.Time
	IntervalEnd   time.Time
	Forecast      int
	Actual        *int
	Index         string
	DataSource    string
}

// Effective returns the actual intensity when published, otherwise the forecast.
func (c CarbonIntensity) Effective() int {
	if c.Actual != nil {
		return *c.Actual
	}
	return c.Forecast
}

type carbonIntensityItem struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Intensity struct {
		Forecast int    `json:"forecast"`
		Actual   *int   `json:"actual"`
		Index    string `json:"index"`
	} `json:"intensity"`
}

// ParseCarbonIntensity builds a CarbonIntensity from one raw API item.
func ParseCarbonIntensity(raw json.RawMessage) (CarbonIntensity, error) {
	var item carbonIntensityItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return CarbonIntensity{}, fmt.Errorf("decode carbon intensity: %w", err)
	}
	from, err := parseCarbonTime(item.From)
	if err != nil {
		return CarbonIntensity{}, err
	}
	to, err := parseCarbonTime(item.To)
	if err != nil {
		return CarbonIntensity{}, err
	}
	index := item.Intensity.Index
	if index == "" {
		index = "unknown"
	}
	return CarbonIntensity{
		IntervalStart: from,
		IntervalEnd:   to,
		Forecast:      item.Intensity.Forecast,
		Actual:        item.Intensity.Actual,
		Index:         index,
		DataSource:    SourceNationalGrid,
	}, nil
}

// FuelMix is a half-hourly generation percentage breakdown by fuel type.
type FuelMix struct {
	IntervalStart time.Time
	IntervalEnd   time.Time
	Biomass       float64
	Coal          float64
	Gas           float64
	Hydro         float64
	Imports       float64
	Nuclear       float64
	Other         float64
	Solar         float64
	Wind          float64
	DataSource    string
}

// RenewablePct sums wind, solar, hydro and biomass shares.
func (f FuelMix) RenewablePct() float64 {
	return f.Wind + f.Solar + f.Hydro + f.Biomass
}

// LowCarbonPct adds nuclear to the renewable share.
func (f FuelMix) LowCarbonPct() float64 {
	return f.RenewablePct() + f.Nuclear
}

type fuelMixItem struct {
	From          string `json:"from"`
	To            string `json:"to"`
	GenerationMix []struct {
		Fuel string  `json:"fuel"`
		Perc float64 `json:"perc"`
	} `json:"generationmix"`
}

// ParseFuelMix builds a FuelMix from one raw API item. Unknown fuel names are
// ignored; missing ones default to zero.
func ParseFuelMix(raw json.RawMessage) (FuelMix, error) {
	var item fuelMixItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return FuelMix{}, fmt.Errorf("decode fuel mix: %w", err)
	}
	from, err := parseCarbonTime(item.From)
	if err != nil {
		return FuelMix{}, err
	}
	to, err := parseCarbonTime(item.To)
	if err != nil {
		return FuelMix{}, err
	}

	mix := FuelMix{IntervalStart: from, IntervalEnd: to, DataSource: SourceNationalGrid}
	for _, entry := range item.GenerationMix {
		switch entry.Fuel {
		case "biomass":
			mix.Biomass = entry.Perc
		case "coal":
			mix.Coal = entry.Perc
		case "gas":
			mix.Gas = entry.Perc
		case "hydro":
			mix.Hydro = entry.Perc
		case "imports":
			mix.Imports = entry.Perc
		case "nuclear":
			mix.Nuclear = entry.Perc
		case "other":
			mix.Other = entry.Perc
		case "solar":
			mix.Solar = entry.Perc
		case "wind":
			mix.Wind = entry.Perc
		}
	}
	return mix, nil
}

func parseCarbonTime(value string) (time.Time, error) {
	ts, err := time.Parse(carbonTimeLayout, value)
	if err != nil {
		// Some endpoints include seconds.
		ts, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse interval timestamp %q: %w", value, err)
		}
	}
	return ts, nil
}
