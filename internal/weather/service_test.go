package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"weatherbot/internal/upstream"
)

const moscowResponse = `{
	"weather": [{"id": 800, "main": "Clear", "description": "ясно"}],
	"main": {"temp": 20.34, "feels_like": 19.12, "pressure": 1013, "humidity": 60},
	"visibility": 10000,
	"wind": {"speed": 3.2, "deg": 350},
	"sys": {"sunrise": 1700000000, "sunset": 1700030000},
	"name": "Москва",
	"cod": 200
}`

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewService(Config{
		Token:    "ow-token",
		BaseURL:  srv.URL,
		Location: time.FixedZone("MSK", 3*60*60),
	}, srv.Client(), zaptest.NewLogger(t))
	return svc, srv
}

func TestService_GetWeather(t *testing.T) {
	var gotQuery map[string]string
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q, want /data/2.5/weather", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q":     q.Get("q"),
			"appid": q.Get("appid"),
			"lang":  q.Get("lang"),
			"units": q.Get("units"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(moscowResponse))
	})

	got, err := svc.GetWeather(context.Background(), "Москва")
	if err != nil {
		t.Fatalf("GetWeather() unexpected error: %v", err)
	}

	want := map[string]string{"q": "Москва", "appid": "ow-token", "lang": "ru", "units": "metric"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if got.Description != "ясно" {
		t.Errorf("Description = %q, want ясно", got.Description)
	}
	if got.Temperature != 20.34 {
		t.Errorf("Temperature = %v, want 20.34", got.Temperature)
	}
	if got.FeelsLike != 19.12 {
		t.Errorf("FeelsLike = %v, want 19.12", got.FeelsLike)
	}
	if got.Pressure != 760 {
		t.Errorf("Pressure = %d, want 760", got.Pressure)
	}
	if got.Humidity != 60 {
		t.Errorf("Humidity = %d, want 60", got.Humidity)
	}
	if got.Visibility != 10000 {
		t.Errorf("Visibility = %d, want 10000", got.Visibility)
	}
	if got.WindSpeed != 3.2 {
		t.Errorf("WindSpeed = %v, want 3.2", got.WindSpeed)
	}
	if got.WindDirection != North {
		t.Errorf("WindDirection = %q, want %q", got.WindDirection, North)
	}
	if got.Sunrise != "01:13" {
		t.Errorf("Sunrise = %q, want 01:13", got.Sunrise)
	}
	if got.Sunset != "09:33" {
		t.Errorf("Sunset = %q, want 09:33", got.Sunset)
	}
}

func TestService_GetWeather_Coordinates(t *testing.T) {
	var gotPlace string
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPlace = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(moscowResponse))
	})

	if _, err := svc.GetWeather(context.Background(), "55.75,37.61"); err != nil {
		t.Fatalf("GetWeather() unexpected error: %v", err)
	}
	if gotPlace != "55.75,37.61" {
		t.Errorf("q = %q, want 55.75,37.61", gotPlace)
	}
}

func TestService_GetWeather_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "city not found", status: http.StatusNotFound, body: `{"cod":"404","message":"city not found"}`},
		{name: "nothing to geocode", status: http.StatusBadRequest, body: `{"cod":"400","message":"Nothing to geocode"}`},
		{name: "error code in ok response", status: http.StatusOK, body: `{"cod":"404","message":"city not found"}`},
		{name: "missing main", status: http.StatusOK, body: `{"weather":[{"description":"ясно"}],"visibility":1,"wind":{"speed":1,"deg":1},"sys":{"sunrise":1,"sunset":2},"cod":200}`},
		{name: "empty weather list", status: http.StatusOK, body: `{"weather":[],"main":{"temp":1},"visibility":1,"wind":{"speed":1,"deg":1},"sys":{"sunrise":1,"sunset":2},"cod":200}`},
		{name: "not json", status: http.StatusOK, body: `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.GetWeather(context.Background(), "Нигде")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("GetWeather() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestService_GetWeather_EmptyPlace(t *testing.T) {
	called := false
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := svc.GetWeather(context.Background(), "   ")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWeather() error = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("provider should not be called for an empty place")
	}
}

func TestService_GetWeather_UpstreamFailure(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`internal error`))
	})

	_, err := svc.GetWeather(context.Background(), "Москва")
	if err == nil {
		t.Fatal("GetWeather() expected error, got nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("server errors should not be reported as ErrNotFound")
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Config{Token: "t"}, nil, nil)

	if svc.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want %q", svc.baseURL, defaultBaseURL)
	}
	if svc.language != "ru" {
		t.Errorf("language = %q, want ru", svc.language)
	}
	if svc.httpClient == nil {
		t.Error("httpClient should not be nil")
	}
	if svc.location == nil {
		t.Error("location should not be nil")
	}
}

func TestService_GetWeather_ErrorsHideToken(t *testing.T) {
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	// one failure opens the breaker, so the second call is rejected locally
	guarded := upstream.NewClient("openweather", time.Second, upstream.BreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
	}, nil, nil)

	tests := []struct {
		name   string
		url    string
		client *http.Client
		warm   bool
		wantIs error
	}{
		{name: "connection refused", url: closed.URL},
		{name: "breaker open", url: failing.URL, client: guarded, warm: true, wantIs: upstream.ErrCircuitOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(Config{Token: "SECRET-APPID", BaseURL: tt.url}, tt.client, zaptest.NewLogger(t))
			if tt.warm {
				_, _ = svc.GetWeather(context.Background(), "Москва")
			}

			_, err := svc.GetWeather(context.Background(), "Москва")
			if err == nil {
				t.Fatal("GetWeather() expected error, got nil")
			}
			if strings.Contains(err.Error(), "SECRET-APPID") {
				t.Errorf("error leaks appid: %v", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}
