package bot

import (
	"fmt"
	"strings"

	"weatherbot/internal/weather"
)

// FormatTextReport renders the full written report: temperatures to one
// decimal, visibility, wind and sun times. The description is kept as the
// provider wrote it.
func FormatTextReport(s weather.Summary, zone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.\n", s.Description)
	fmt.Fprintf(&b, "Температура %.1f ℃, ощущается как %.1f ℃.\n", s.Temperature, s.FeelsLike)
	fmt.Fprintf(&b, "Атмосферное давление %d мм рт. ст.\n", s.Pressure)
	fmt.Fprintf(&b, "Влажность %d %%.\n", s.Humidity)
	fmt.Fprintf(&b, "Видимость %d метров.\n", s.Visibility)
	fmt.Fprintf(&b, "Ветер %.1f м/с %s.\n", s.WindSpeed, s.WindDirection)
	fmt.Fprintf(&b, "Восход солнца %s %s. Закат %s %s.", s.Sunrise, zone, s.Sunset, zone)
	return b.String()
}

// FormatSpokenReport renders the shorter report read out by the voice reply.
// Temperatures are whole degrees and visibility and wind are left out.
func FormatSpokenReport(place string, s weather.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Населенный пункт %s.\n", place)
	fmt.Fprintf(&b, "%s.\n", s.Description)
	fmt.Fprintf(&b, "Температура %.0f градусов цельсия.\n", s.Temperature)
	fmt.Fprintf(&b, "Ощущается как %.0f градусов цельсия.\n", s.FeelsLike)
	fmt.Fprintf(&b, "Давление %d миллиметров ртутного столба.\n", s.Pressure)
	fmt.Fprintf(&b, "Влажность %d процентов.", s.Humidity)
	return b.String()
}
