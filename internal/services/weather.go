package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	weatherTimeout     = 10 * time.Second

	// 40 entries of 3-hour forecast = 5 days.
	forecastEntries = "40"
	forecastMaxDays = 4
)

var ErrWeatherNotConfigured = errors.New("weather: OPENWEATHER_API_KEY is not set")

// CurrentWeather is the flattened view of an OpenWeather current-conditions
// response.
type CurrentWeather struct {
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	City        string  `json:"city"`
}

// ForecastDay aggregates one day's 3-hour forecast slots.
type ForecastDay struct {
	Day       string  `json:"day"`
	Date      string  `json:"date"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
	Condition string  `json:"condition"`
	RainMM    float64 `json:"rain_mm"`
}

type owWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

type owForecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Rain struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
}

// WeatherService talks to OpenWeather for current conditions and the 5-day
// forecast.
type WeatherService struct {
	client *resty.Client
	apiKey string
}

func NewWeatherService() (*WeatherService, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	if apiKey == "" {
		return nil, ErrWeatherNotConfigured
	}

	client := resty.New().
		SetBaseURL(openWeatherBaseURL).
		SetTimeout(weatherTimeout)

	return &WeatherService{client: client, apiKey: apiKey}, nil
}

// Current fetches current conditions for a city, metric units.
func (s *WeatherService) Current(ctx context.Context, city string) (*CurrentWeather, error) {
	var out owWeatherResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"units": "metric",
			"appid": s.apiKey,
		}).
		SetResult(&out).
		Get("/weather")
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("weather request: %s returned %s", city, resp.Status())
	}

	current := &CurrentWeather{
		Temp:      out.Main.Temp,
		FeelsLike: out.Main.FeelsLike,
		Humidity:  out.Main.Humidity,
		WindSpeed: out.Wind.Speed,
		City:      out.Name,
	}
	if len(out.Weather) > 0 {
		current.Condition = out.Weather[0].Main
		current.Description = out.Weather[0].Description
		current.Icon = out.Weather[0].Icon
	}
	return current, nil
}

// Forecast fetches the 5-day forecast and aggregates it into daily summaries,
// skipping today's remaining slots.
func (s *WeatherService) Forecast(ctx context.Context, city string) ([]ForecastDay, error) {
	var out owForecastResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"units": "metric",
			"cnt":   forecastEntries,
			"appid": s.apiKey,
		}).
		SetResult(&out).
		Get("/forecast")
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("forecast request: %s returned %s", city, resp.Status())
	}

	type dayAgg struct {
		tempMin     float64
		tempMax     float64
		humiditySum int
		slots       int
		conditions  map[string]int
		rainMM      float64
	}

	today := time.Now().Format("2006-01-02")
	byDate := map[string]*dayAgg{}
	for _, slot := range out.List {
		date := time.Unix(slot.Dt, 0).Format("2006-01-02")
		if date == today {
			continue
		}
		agg, ok := byDate[date]
		if !ok {
			agg = &dayAgg{
				tempMin:    slot.Main.TempMin,
				tempMax:    slot.Main.TempMax,
				conditions: map[string]int{},
			}
			byDate[date] = agg
		}
		if slot.Main.TempMin < agg.tempMin {
			agg.tempMin = slot.Main.TempMin
		}
		if slot.Main.TempMax > agg.tempMax {
			agg.tempMax = slot.Main.TempMax
		}
		agg.humiditySum += slot.Main.Humidity
		agg.slots++
		if len(slot.Weather) > 0 {
			agg.conditions[slot.Weather[0].Main]++
		}
		agg.rainMM += slot.Rain.ThreeHour
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > forecastMaxDays {
		dates = dates[:forecastMaxDays]
	}

	days := make([]ForecastDay, 0, len(dates))
	for i, date := range dates {
		agg := byDate[date]

		condition := ""
		best := 0
		for cond, n := range agg.conditions {
			if n > best {
				condition = cond
				best = n
			}
		}

		day := "Tomorrow"
		if i > 0 {
			t, _ := time.Parse("2006-01-02", date)
			day = t.Format("Mon")
		}

		humidity := 0
		if agg.slots > 0 {
			humidity = agg.humiditySum / agg.slots
		}

		days = append(days, ForecastDay{
			Day:       day,
			Date:      date,
			TempMin:   agg.tempMin,
			TempMax:   agg.tempMax,
			Humidity:  humidity,
			Condition: condition,
			RainMM:    agg.rainMM,
		})
	}
	return days, nil
}

// PestRisk scores pest pressure from weather conditions. High humidity and
// warm temperatures favour most pests; active rain washes them off.
func PestRisk(humidity int, temp float64, condition string) string {
	score := 0.0

	switch {
	case humidity > 80:
		score += 3
	case humidity > 60:
		score += 2
	case humidity > 40:
		score += 1
	}

	switch {
	case temp >= 25 && temp <= 32:
		score += 3
	case temp >= 20 && temp < 25:
		score += 2
	case temp > 32 && temp < 38:
		score += 1
	}

	switch condition {
	case "Clear", "Sunny":
		score += 1
	case "Rain", "Thunderstorm":
		score -= 1
	case "Clouds":
		score += 0.5
	}

	switch {
	case score >= 5:
		return "High"
	case score >= 3:
		return "Medium"
	default:
		return "Low"
	}
}
