package handler

import (
	"github.com/airvitals/airvitals/internal/airquality"
	"github.com/airvitals/airvitals/internal/api/models"
	"github.com/airvitals/airvitals/internal/aqi"
	"github.com/airvitals/airvitals/internal/refresh"
	"github.com/airvitals/airvitals/internal/weather"
)

func stateView(s refresh.State) models.AirQualityState {
	v := models.AirQualityState{
		Phase:          string(s.Phase),
		Loading:        s.Loading(),
		Generation:     s.Generation,
		Message:        s.Message,
		Failure:        string(s.Failure),
		FetchStartedAt: models.TimestampPtr(s.FetchStartedAt),
		RefreshedAt:    models.TimestampPtr(s.RefreshedAt),
	}
	if !s.Coordinates.IsSentinel() {
		v.Location = &models.Point{Latitude: s.Coordinates.Latitude, Longitude: s.Coordinates.Longitude}
	}
	if s.Report != nil {
		r := reportView(s.Report)
		v.Report = &r
	}
	return v
}

func reportView(r *airquality.Report) models.AirQualityReport {
	station := r.Location.Point()
	v := models.AirQualityReport{
		Place:     r.Place(),
		City:      r.City,
		State:     r.State,
		Country:   r.Country,
		Station:   models.Point{Latitude: station.Latitude, Longitude: station.Longitude},
		Provider:  r.Provider,
		FetchedAt: models.TimestampPtr(r.FetchedAt),
		Pollution: pollutionView(r.Current.Pollution),
		Weather:   weatherView(&r.Current.Weather),
		Forecasts: make([]models.ForecastView, 0, len(r.Forecasts)),
	}
	for i := range r.Forecasts {
		f := &r.Forecasts[i]
		fv := models.ForecastView{
			Weather: weatherView(&f.Weather),
			TempMin: f.TempMin,
			AQIUS:   f.AQIUS,
			AQICN:   f.AQICN,
		}
		if c, err := f.Classification(); err == nil {
			cv := classificationView(c)
			fv.Classification = &cv
		}
		v.Forecasts = append(v.Forecasts, fv)
	}
	return v
}

func pollutionView(p airquality.Pollution) models.PollutionView {
	v := models.PollutionView{
		MeasuredAt: models.TimestampPtr(p.MeasuredAt),
		AQIUS:      p.AQIUS,
		MainUS:     p.MainUS,
		AQICN:      p.AQICN,
		MainCN:     p.MainCN,
	}
	if c, err := p.Classification(); err == nil {
		cv := classificationView(c)
		g := gaugeView(aqi.NewGauge(c))
		v.Classification = &cv
		v.Gauge = &g
	}
	return v
}

func weatherView(o *weather.Observation) models.WeatherView {
	return models.WeatherView{
		ObservedAt:    models.TimestampPtr(o.ObservedAt),
		Temperature:   o.Temperature,
		Pressure:      o.Pressure,
		Humidity:      o.Humidity,
		WindSpeed:     o.WindSpeed,
		WindDirection: o.WindDirection,
		WindFrom:      o.CompassPoint(),
		WindCategory:  string(o.WindCategory()),
		Condition:     string(o.Condition()),
		Daytime:       o.IsDaytime(),
		IconCode:      o.IconCode,
	}
}

func classificationView(c aqi.Classification) models.Classification {
	return models.Classification{
		Reading: float64(c.Reading),
		Icon:    string(c.Icon),
		Label:   string(c.Label),
		Colors:  models.Colors{Fill: c.Colors.Fill, Border: c.Colors.Border},
	}
}

func gaugeView(g aqi.Gauge) models.Gauge {
	return models.Gauge{
		Radius:        g.Radius,
		StrokeWidth:   g.StrokeWidth,
		Center:        g.Center,
		Circumference: g.Circumference,
		Progress:      g.Progress,
		Stroke:        g.Stroke,
	}
}

func bandView(b aqi.Band) models.Band {
	v := models.Band{
		Icon:   string(b.Icon),
		Label:  string(b.Label),
		Colors: models.Colors{Fill: b.Colors.Fill, Border: b.Colors.Border},
	}
	if b.Bounded() {
		upper := b.UpperBound
		v.UpperBound = &upper
	}
	return v
}
