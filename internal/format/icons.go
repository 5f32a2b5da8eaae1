package format

import (
	"errors"
	"fmt"
)

// Icon indexes into the 3x3 weather icon sprite sheet.
const (
	IconSunny = iota
	IconPartlyCloudy
	IconCloudy
	IconOvercast
	IconRain
	IconShowers
	IconStorm
	IconSnow
	IconFog

	IconCount
)

var ErrUnknownWeatherCode = errors.New("unknown weather code")

// WMO weather codes per icon, see https://open-meteo.com/en/docs.
var wmoCodeToIcon = [IconCount][]int{
	IconSunny:        {0},
	IconPartlyCloudy: {1},
	IconCloudy:       {2},
	IconOvercast:     {3},
	IconRain:         {61, 63, 65},
	IconShowers:      {51, 53, 55, 80, 81, 82},
	IconStorm:        {95, 96, 99},
	IconSnow:         {56, 57, 66, 67, 71, 73, 75, 77, 85, 86},
	IconFog:          {45, 48},
}

var iconNames = [IconCount]string{
	"SUN", "PARTLY", "CLOUDY", "OVERCAST", "RAIN", "SHOWERS", "STORM", "SNOW", "FOG",
}

// IconIndex returns the sprite index of the first category that lists code.
func IconIndex(code int) (int, error) {
	for i, codes := range wmoCodeToIcon {
		for _, c := range codes {
			if c == code {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownWeatherCode, code)
}

// IconName is a short label for an icon index, used when no sprite sheet is loaded.
func IconName(index int) string {
	if index < 0 || index >= IconCount {
		return "?"
	}
	return iconNames[index]
}
