package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPestRisk(t *testing.T) {
	cases := []struct {
		name      string
		humidity  int
		temp      float64
		condition string
		want      string
	}{
		{"humid and warm is high", 85, 28, "Clear", "High"},
		{"humid warm but raining drops a notch", 85, 28, "Rain", "High"},
		{"moderate humidity and warmth", 65, 22, "Clouds", "Medium"},
		{"moderate humidity but peak warmth", 65, 28, "Clouds", "High"},
		{"mild conditions", 50, 22, "Rain", "Low"},
		{"dry and cool", 30, 15, "Clear", "Low"},
		{"dry but warm", 45, 28, "Clouds", "Medium"},
		{"very hot suppresses", 45, 36, "Clear", "Medium"},
		{"extreme heat scores nothing for temperature", 45, 38, "Clear", "Low"},
		{"thunderstorm washout", 70, 18, "Thunderstorm", "Low"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PestRisk(tc.humidity, tc.temp, tc.condition))
		})
	}
}

func testWeatherService(baseURL string) *WeatherService {
	return &WeatherService{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(5 * time.Second),
		apiKey: "test-key",
	}
}

func TestWeatherServiceCurrent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Ludhiana", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"main": {"temp": 31.4, "feels_like": 34.0, "humidity": 72},
			"weather": [{"main": "Clouds", "description": "scattered clouds", "icon": "03d"}],
			"wind": {"speed": 3.5},
			"name": "Ludhiana"
		}`)
	}))
	defer ts.Close()

	current, err := testWeatherService(ts.URL).Current(context.Background(), "Ludhiana")
	require.NoError(t, err)
	assert.Equal(t, 31.4, current.Temp)
	assert.Equal(t, 72, current.Humidity)
	assert.Equal(t, "Clouds", current.Condition)
	assert.Equal(t, "scattered clouds", current.Description)
	assert.Equal(t, "Ludhiana", current.City)
}

func TestWeatherServiceCurrentUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := testWeatherService(ts.URL).Current(context.Background(), "Nowhereville")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhereville")
}

func TestWeatherServiceForecast(t *testing.T) {
	now := time.Now()
	today := now.Unix()
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.Local)
	tomorrow := noon.Add(24 * time.Hour)
	dayAfter := noon.Add(48 * time.Hour)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "40", r.URL.Query().Get("cnt"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"list": [
				{"dt": %d, "main": {"temp_min": 25, "temp_max": 35, "humidity": 50}, "weather": [{"main": "Clear"}]},
				{"dt": %d, "main": {"temp_min": 20, "temp_max": 30, "humidity": 80}, "weather": [{"main": "Rain"}], "rain": {"3h": 2.5}},
				{"dt": %d, "main": {"temp_min": 18, "temp_max": 31, "humidity": 60}, "weather": [{"main": "Rain"}], "rain": {"3h": 1.5}},
				{"dt": %d, "main": {"temp_min": 22, "temp_max": 29, "humidity": 55}, "weather": [{"main": "Clouds"}]}
			]
		}`, today, tomorrow.Unix(), tomorrow.Add(3*time.Hour).Unix(), dayAfter.Unix())
	}))
	defer ts.Close()

	days, err := testWeatherService(ts.URL).Forecast(context.Background(), "Ludhiana")
	require.NoError(t, err)
	require.Len(t, days, 2)

	// today's slot is skipped, tomorrow aggregates its two slots
	first := days[0]
	assert.Equal(t, "Tomorrow", first.Day)
	assert.Equal(t, 18.0, first.TempMin)
	assert.Equal(t, 31.0, first.TempMax)
	assert.Equal(t, 70, first.Humidity)
	assert.Equal(t, "Rain", first.Condition)
	assert.Equal(t, 4.0, first.RainMM)

	second := days[1]
	assert.NotEqual(t, "Tomorrow", second.Day)
	assert.Equal(t, "Clouds", second.Condition)
	assert.Equal(t, 0.0, second.RainMM)
}

func TestNewWeatherServiceRequiresKey(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "")

	_, err := NewWeatherService()
	assert.ErrorIs(t, err, ErrWeatherNotConfigured)
}
