package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"weatherbot/internal/upstream"
)

const (
	defaultBaseURL = "https://api.openweathermap.org"
	currentPath    = "/data/2.5/weather"

	// hPa to mmHg
	hpaToMmHg = 0.750062
)

// ErrNotFound means the provider has no usable weather for the place.
var ErrNotFound = errors.New("weather not found")

// Summary is the normalized current weather for one place.
type Summary struct {
	Description   string  `json:"description"`
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feels_like"`
	Pressure      int     `json:"pressure"`
	Humidity      int     `json:"humidity"`
	Visibility    int     `json:"visibility"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection string  `json:"wind_direction"`
	Sunrise       string  `json:"sunrise"`
	Sunset        string  `json:"sunset"`
}

// Config holds settings for the OpenWeather client
type Config struct {
	Token    string
	BaseURL  string         // If empty, uses https://api.openweathermap.org
	Language string         // If empty, uses ru
	Location *time.Location // Zone for sunrise/sunset, defaults to Europe/Moscow
}

// Service looks up current weather via the OpenWeather API
type Service struct {
	token      string
	baseURL    string
	language   string
	location   *time.Location
	httpClient *http.Client
	log        *zap.Logger
}

// NewService creates a new weather service
func NewService(cfg Config, httpClient *http.Client, log *zap.Logger) *Service {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	language := cfg.Language
	if language == "" {
		language = "ru"
	}

	loc := cfg.Location
	if loc == nil {
		loc = moscow()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		token:      cfg.Token,
		baseURL:    baseURL,
		language:   language,
		location:   loc,
		httpClient: httpClient,
		log:        log,
	}
}

func moscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// owCode accepts both the numeric and the string form of the "cod" field.
type owCode int

func (c *owCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return fmt.Errorf("parse cod %q: %w", s, err)
	}
	*c = owCode(n)
	return nil
}

type owResponse struct {
	Cod     owCode `json:"cod"`
	Message string `json:"message"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       *struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Sys *struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

// GetWeather fetches current conditions for a place name or a "lat,lon" pair.
// It returns ErrNotFound when the provider does not know the place.
func (s *Service) GetWeather(ctx context.Context, place string) (Summary, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Summary{}, ErrNotFound
	}

	params := url.Values{}
	params.Set("q", place)
	params.Set("appid", s.token)
	params.Set("lang", s.language)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+currentPath+"?"+params.Encode(), nil)
	if err != nil {
		return Summary{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("send request: %w", upstream.StripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Summary{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		s.log.Debug("weather place not found", zap.String("place", place), zap.Int("status", resp.StatusCode))
		return Summary{}, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Summary{}, fmt.Errorf("weather api status %d: %s", resp.StatusCode, snippet(body))
	}

	var result owResponse
	if err := json.Unmarshal(body, &result); err != nil {
		s.log.Warn("malformed weather response", zap.String("place", place), zap.Error(err))
		return Summary{}, ErrNotFound
	}

	summary, ok := s.normalize(result)
	if !ok {
		s.log.Debug("weather response incomplete", zap.String("place", place), zap.Int("cod", int(result.Cod)), zap.String("message", result.Message))
		return Summary{}, ErrNotFound
	}
	return summary, nil
}

func (s *Service) normalize(r owResponse) (Summary, bool) {
	if r.Cod != 0 && r.Cod != http.StatusOK {
		return Summary{}, false
	}
	if len(r.Weather) == 0 || r.Main == nil || r.Visibility == nil || r.Wind == nil || r.Sys == nil {
		return Summary{}, false
	}

	return Summary{
		Description:   r.Weather[0].Description,
		Temperature:   r.Main.Temp,
		FeelsLike:     r.Main.FeelsLike,
		Pressure:      int(math.Round(r.Main.Pressure * hpaToMmHg)),
		Humidity:      int(math.Round(r.Main.Humidity)),
		Visibility:    int(math.Round(*r.Visibility)),
		WindSpeed:     r.Wind.Speed,
		WindDirection: DirectionLabel(r.Wind.Deg),
		Sunrise:       s.clock(r.Sys.Sunrise),
		Sunset:        s.clock(r.Sys.Sunset),
	}, true
}

func (s *Service) clock(unix int64) string {
	return time.Unix(unix, 0).In(s.location).Format("15:04")
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}
