package weather

import "math"

// Compass labels, clockwise from north.
const (
	North     = "С"
	NorthEast = "СВ"
	East      = "В"
	SouthEast = "ЮВ"
	South     = "Ю"
	SouthWest = "ЮЗ"
	West      = "З"
	NorthWest = "СЗ"
)

var compassLabels = [8]string{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// DirectionLabel maps a wind bearing in degrees to one of eight compass labels.
// Each label covers a 45° sector centered on its point, so 337.5°..22.5° is north.
func DirectionLabel(deg float64) string {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return North
	}
	shifted := math.Mod(deg+22.5, 360)
	if shifted < 0 {
		shifted += 360
	}
	return compassLabels[int(shifted/45)%8]
}
