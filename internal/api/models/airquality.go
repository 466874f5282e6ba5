package models

// AirQualityState is the refresh controller state as shown to clients.
type AirQualityState struct {
	Phase      string `json:"phase"`
	Loading    bool   `json:"loading"`
	Generation uint64 `json:"generation"`

	// Location is omitted until a position has been acquired.
	Location *Point `json:"location,omitempty"`

	Message string `json:"message,omitempty"`
	Failure string `json:"failure,omitempty"`

	FetchStartedAt *Timestamp `json:"fetchStartedAt,omitempty"`
	RefreshedAt    *Timestamp `json:"refreshedAt,omitempty"`

	Report *AirQualityReport `json:"report,omitempty"`
}

// AirQualityReport is the nearest-city report.
type AirQualityReport struct {
	Place     string         `json:"place"`
	City      string         `json:"city"`
	State     string         `json:"state,omitempty"`
	Country   string         `json:"country"`
	Station   Point          `json:"station"`
	Provider  string         `json:"provider"`
	FetchedAt *Timestamp     `json:"fetchedAt,omitempty"`
	Pollution PollutionView  `json:"pollution"`
	Weather   WeatherView    `json:"weather"`
	Forecasts []ForecastView `json:"forecasts"`
}

// PollutionView is the current pollution with its classification. The
// classification and gauge are omitted when the index is not classifiable.
type PollutionView struct {
	MeasuredAt     *Timestamp      `json:"measuredAt,omitempty"`
	AQIUS          float64         `json:"aqiUs"`
	MainUS         string          `json:"mainUs,omitempty"`
	AQICN          float64         `json:"aqiCn"`
	MainCN         string          `json:"mainCn,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	Gauge          *Gauge          `json:"gauge,omitempty"`
}

// WeatherView is a weather observation with derived presentation fields.
type WeatherView struct {
	ObservedAt    *Timestamp `json:"observedAt,omitempty"`
	Temperature   float64    `json:"temperature"`
	Pressure      float64    `json:"pressure"`
	Humidity      float64    `json:"humidity"`
	WindSpeed     float64    `json:"windSpeed"`
	WindDirection float64    `json:"windDirection"`
	WindFrom      string     `json:"windFrom"`
	WindCategory  string     `json:"windCategory"`
	Condition     string     `json:"condition"`
	Daytime       bool       `json:"daytime"`
	IconCode      string     `json:"iconCode,omitempty"`
}

// ForecastView is one forecast entry.
type ForecastView struct {
	Weather        WeatherView     `json:"weather"`
	TempMin        float64         `json:"tempMin"`
	AQIUS          float64         `json:"aqiUs"`
	AQICN          float64         `json:"aqiCn"`
	Classification *Classification `json:"classification,omitempty"`
}
