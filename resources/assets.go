package resources

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// TraySize is the tray icon edge in pixels.
	TraySize = 22
	// MenuDotSize is the menu item dot edge in pixels.
	MenuDotSize = 16
	// AppIconSize is the window icon edge in pixels.
	AppIconSize = 64
	// IconCacheSize holds a tray icon and a menu dot for well over a hundred projects.
	IconCacheSize = 256
)

// FallbackColor is used when a project color cannot be parsed.
var FallbackColor = color.NRGBA{R: 91, G: 164, B: 196, A: 255}

// Icons renders and caches circle icons.
type Icons struct {
	cache *lru.Cache[string, fyne.Resource]
}

// NewIcons creates an icon renderer that keeps up to capacity rendered icons.
func NewIcons(capacity int) (*Icons, error) {
	cache, err := lru.New[string, fyne.Resource](capacity)
	if err != nil {
		return nil, fmt.Errorf("create icon cache: %w", err)
	}
	return &Icons{cache: cache}, nil
}

// Tray returns the tray icon for a color and initial.
func (icons *Icons) Tray(hex, letter string) (fyne.Resource, error) {
	return icons.load(TraySize, hex, letter)
}

// MenuDot returns a plain colored dot for menu items.
func (icons *Icons) MenuDot(hex string) (fyne.Resource, error) {
	return icons.load(MenuDotSize, hex, "")
}

// App returns the application icon.
func (icons *Icons) App() (fyne.Resource, error) {
	return icons.load(AppIconSize, "#3B82F6", "T")
}

func (icons *Icons) load(size int, hex, letter string) (fyne.Resource, error) {
	key := fmt.Sprintf("%d-%s-%s", size, strings.ToUpper(hex), letter)
	if cached, ok := icons.cache.Get(key); ok {
		return cached, nil
	}

	data, err := Render(size, hex, letter)
	if err != nil {
		return nil, err
	}

	resource := fyne.NewStaticResource("icon-"+key+".png", data)
	icons.cache.Add(key, resource)
	return resource, nil
}

// Render draws a filled circle in hex with an optional white letter and encodes it as PNG.
func Render(size int, hex, letter string) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("render icon: invalid size %d", size)
	}
	fill, ok := ParseHexColor(hex)
	if !ok {
		fill = FallbackColor
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	drawCircle(canvas, fill)
	if letter != "" {
		drawLetter(canvas, letter)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, canvas); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buffer.Bytes(), nil
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB".
func ParseHexColor(hex string) (color.NRGBA, bool) {
	value := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(value) != 6 {
		return color.NRGBA{}, false
	}
	parsed, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{
		R: uint8(parsed >> 16),
		G: uint8(parsed >> 8),
		B: uint8(parsed),
		A: 255,
	}, true
}

func drawCircle(canvas *image.NRGBA, fill color.NRGBA) {
	size := canvas.Bounds().Dx()
	center := float64(size) / 2
	radius := center - 0.5

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			distance := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			coverage := radius - distance + 0.5
			if coverage <= 0 {
				continue
			}
			pixel := fill
			if coverage < 1 {
				pixel.A = uint8(float64(fill.A) * coverage)
			}
			canvas.SetNRGBA(x, y, pixel)
		}
	}
}

func drawLetter(canvas *image.NRGBA, letter string) {
	face := basicfont.Face7x13
	size := canvas.Bounds().Dx()

	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.White), Face: face}
	width := drawer.MeasureString(letter).Round()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Round()

	x := (size - width) / 2
	baseline := (size-height)/2 + metrics.Ascent.Round()
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(letter)
}
