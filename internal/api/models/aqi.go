package models

// Colors is the card fill and border colour of a band.
type Colors struct {
	Fill   string `json:"fill"`
	Border string `json:"border"`
}

// Classification is the presentation of one AQI reading.
type Classification struct {
	Reading float64 `json:"reading"`
	Icon    string  `json:"icon"`
	Label   string  `json:"label"`
	Colors  Colors  `json:"colors"`
}

// Gauge is the circular AQI indicator geometry.
type Gauge struct {
	Radius        float64 `json:"radius"`
	StrokeWidth   float64 `json:"strokeWidth"`
	Center        float64 `json:"center"`
	Circumference float64 `json:"circumference"`
	Progress      float64 `json:"progress"`
	Stroke        string  `json:"stroke"`
}

// ClassifyResponse is returned by GET /v1/aqi/classify.
type ClassifyResponse struct {
	Classification Classification `json:"classification"`
	Gauge          Gauge          `json:"gauge"`
}

// Band is one row of the threshold table. UpperBound is omitted for the
// open-ended last band.
type Band struct {
	UpperBound *float64 `json:"upperBound,omitempty"`
	Icon       string   `json:"icon"`
	Label      string   `json:"label"`
	Colors     Colors   `json:"colors"`
}

// BandList is returned by GET /v1/aqi/bands.
type BandList struct {
	Items []Band `json:"items"`
}
