package model

import "time"

type Farm struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Location  string    `json:"location,omitempty" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Barn struct {
	ID          int64     `json:"id" db:"id"`
	FarmID      int64     `json:"farm_id" db:"farm_id"`
	Name        string    `json:"name" db:"name"`
	Capacity    int       `json:"capacity" db:"capacity"`
	RiskLevel   string    `json:"risk_level" db:"risk_level"` // "low", "medium" or "high"
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// Checklist is a periodic barn inspection. Nil measurements were not recorded.
type Checklist struct {
	ID               int64      `json:"id" db:"id"`
	BarnID           int64      `json:"barn_id" db:"barn_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	HygieneScore     *float64   `json:"hygiene_score,omitempty" db:"hygiene_score"`
	MortalityCount   *float64   `json:"mortality_count,omitempty" db:"mortality_count"`
	FeedQuality      *float64   `json:"feed_quality,omitempty" db:"feed_quality"`
	WaterQuality     *float64   `json:"water_quality,omitempty" db:"water_quality"`
	VentilationScore *float64   `json:"ventilation_score,omitempty" db:"ventilation_score"`
	Temperature      *float64   `json:"temperature,omitempty" db:"temperature"`
	Humidity         *float64   `json:"humidity,omitempty" db:"humidity"`
	Notes            string     `json:"notes,omitempty" db:"notes"`
	SubmittedAt      time.Time  `json:"submitted_at" db:"submitted_at"`
	Approved         bool       `json:"approved" db:"approved"`
	ApprovedBy       *int64     `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty" db:"approved_at"`
}

// Features returns the checklist measurements, substituting DefaultFeatures
// for anything that was not recorded.
func (c Checklist) Features() FeatureVector {
	d := DefaultFeatures
	return FeatureVector{
		HygieneScore:     orDefault(c.HygieneScore, d.HygieneScore),
		MortalityCount:   orDefault(c.MortalityCount, d.MortalityCount),
		FeedQuality:      orDefault(c.FeedQuality, d.FeedQuality),
		WaterQuality:     orDefault(c.WaterQuality, d.WaterQuality),
		VentilationScore: orDefault(c.VentilationScore, d.VentilationScore),
		Temperature:      orDefault(c.Temperature, d.Temperature),
		Humidity:         orDefault(c.Humidity, d.Humidity),
	}
}

// SetFeatures records every measurement of v on the checklist.
func (c *Checklist) SetFeatures(v FeatureVector) {
	vals := v.Values()
	ptrs := []**float64{
		&c.HygieneScore, &c.MortalityCount, &c.FeedQuality, &c.WaterQuality,
		&c.VentilationScore, &c.Temperature, &c.Humidity,
	}
	for i, p := range ptrs {
		x := vals[i]
		*p = &x
	}
}

func orDefault(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

const (
	AlertTypeHighRisk = "high_risk"
)

type Alert struct {
	ID        int64     `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	Message   string    `json:"message" db:"message"`
	Severity  string    `json:"severity" db:"severity"`
	BarnID    *int64    `json:"barn_id,omitempty" db:"barn_id"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
