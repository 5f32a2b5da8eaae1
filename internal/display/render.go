package display

// Panel geometry in landscape orientation.
const (
	Width  = 250
	Height = 122
)

// Font picks a face for a Text command.
type Font int

const (
	FontSmall Font = iota
	FontLarge
)

// Anchor says which point of the text box sits at (X, Y).
type Anchor int

const (
	AnchorTopLeft Anchor = iota
	AnchorTopCenter
	AnchorMiddleLeft
)

// IconSize picks a sprite sheet.
type IconSize int

const (
	IconSmall IconSize = iota
	IconLarge
)

// Pixel sizes of one sprite tile.
const (
	LargeIconPx = 56
	SmallIconPx = 16
)

// Command is one drawing instruction produced by Render.
type Command interface {
	command()
}

// Background clears the panel and draws the static chrome for a view.
type Background struct {
	View View
}

// Text draws a string.
type Text struct {
	X, Y   int
	Anchor Anchor
	Font   Font
	Value  string
}

// Icon draws one tile of a weather sprite sheet with its top-left corner at (X, Y).
type Icon struct {
	X, Y  int
	Size  IconSize
	Index int
}

func (Background) command() {}
func (Text) command()       {}
func (Icon) command()       {}

type point struct{ x, y int }

const captionGap = 13

var (
	datePos     = point{13, 4}
	locationPos = point{13, 15}
	todayIcon   = point{8, 30}
	lowPos      = point{100, 42}
	highPos     = point{128, 42}
	nowPos      = point{156, 42}
	dewPos      = point{108, 72}
	feelsPos    = point{152, 72}
	windPos     = point{72, 92}
	sunrisePos  = point{36, 112}
	sunsetPos   = point{116, 112}

	futureX      = 177
	futureY      = [5]int{18, 38, 58, 78, 98}
	futureDayDX  = 0
	futureIconDX = 22
	futureTempDX = 42

	sensorTempPos  = point{55, 26}
	sensorHumidPos = point{55, 82}
)

// Render lists the draw commands for s. It has no side effects; the same
// state always yields the same commands.
func Render(s State) []Command {
	if s.View == ViewSensor {
		return renderSensor(s.Sensor)
	}
	return renderForecast(s)
}

func renderForecast(s State) []Command {
	t := s.Today
	cmds := []Command{
		Background{View: ViewForecast},
		caption(lowPos.x, lowPos.y-captionGap, "LO"),
		caption(highPos.x, highPos.y-captionGap, "HI"),
		caption(nowPos.x, nowPos.y-captionGap, "NOW"),
		caption(dewPos.x, dewPos.y-captionGap, "DEW"),
		caption(feelsPos.x, feelsPos.y-captionGap, "FEELS"),
		Text{X: 8, Y: sunrisePos.y, Anchor: AnchorMiddleLeft, Value: "UP"},
		Text{X: 96, Y: sunsetPos.y, Anchor: AnchorMiddleLeft, Value: "DN"},

		Text{X: datePos.x, Y: datePos.y, Value: t.Date},
		Text{X: locationPos.x, Y: locationPos.y, Value: t.Location},
		Icon{X: todayIcon.x, Y: todayIcon.y, Size: IconLarge, Index: t.Icon},
		Text{X: lowPos.x, Y: lowPos.y, Anchor: AnchorTopCenter, Value: t.Low},
		Text{X: highPos.x, Y: highPos.y, Anchor: AnchorTopCenter, Value: t.High},
		Text{X: nowPos.x, Y: nowPos.y, Anchor: AnchorTopCenter, Value: t.Now},
		Text{X: dewPos.x, Y: dewPos.y, Anchor: AnchorTopCenter, Value: t.Dew},
		Text{X: feelsPos.x, Y: feelsPos.y, Anchor: AnchorTopCenter, Value: t.Feels},
		Text{X: windPos.x, Y: windPos.y, Anchor: AnchorMiddleLeft, Value: "from " + t.Wind},
		Text{X: sunrisePos.x, Y: sunrisePos.y, Anchor: AnchorMiddleLeft, Value: t.Sunrise},
		Text{X: sunsetPos.x, Y: sunsetPos.y, Anchor: AnchorMiddleLeft, Value: t.Sunset},
	}
	for i, f := range s.Future {
		y := futureY[i]
		cmds = append(cmds,
			Text{X: futureX + futureDayDX, Y: y + SmallIconPx/2, Anchor: AnchorMiddleLeft, Value: f.Day},
			Icon{X: futureX + futureIconDX, Y: y, Size: IconSmall, Index: f.Icon},
			Text{X: futureX + futureTempDX, Y: y + SmallIconPx/2, Anchor: AnchorMiddleLeft, Value: f.Temp},
		)
	}
	return cmds
}

func renderSensor(s Sensor) []Command {
	return []Command{
		Background{View: ViewSensor},
		Text{X: 8, Y: sensorTempPos.y - 14, Value: "TEMPERATURE"},
		Text{X: 8, Y: sensorHumidPos.y - 14, Value: "HUMIDITY"},
		Text{X: sensorTempPos.x, Y: sensorTempPos.y, Font: FontLarge, Value: s.Temperature},
		Text{X: sensorHumidPos.x, Y: sensorHumidPos.y, Font: FontLarge, Value: s.Humidity},
	}
}

func caption(x, y int, s string) Text {
	return Text{X: x, Y: y, Anchor: AnchorTopCenter, Value: s}
}
