package resources

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	parsed, ok := ParseHexColor("#3B82F6")
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 255}, parsed)

	parsed, ok = ParseHexColor("22c55e")
	require.True(t, ok)
	assert.Equal(t, uint8(0x22), parsed.R)

	for _, bad := range []string{"", "#123", "#GGGGGG", "blue"} {
		_, ok := ParseHexColor(bad)
		assert.False(t, ok, bad)
	}
}

func TestRenderCircle(t *testing.T) {
	data, err := Render(TraySize, "#808080", "")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, TraySize, img.Bounds().Dx())
	assert.Equal(t, TraySize, img.Bounds().Dy())

	center := color.NRGBAModel.Convert(img.At(TraySize/2, TraySize/2)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 255}, center)

	corner := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	assert.Equal(t, uint8(0), corner.A)
}

func TestRenderFallbackColor(t *testing.T) {
	data, err := Render(MenuDotSize, "not-a-color", "")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	center := color.NRGBAModel.Convert(img.At(MenuDotSize/2, MenuDotSize/2)).(color.NRGBA)
	assert.Equal(t, FallbackColor, center)
}

func TestRenderLetterAddsWhitePixels(t *testing.T) {
	data, err := Render(TraySize, "#000000", "W")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	white := 0
	for y := 0; y < TraySize; y++ {
		for x := 0; x < TraySize; x++ {
			pixel := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if pixel.R > 200 && pixel.G > 200 && pixel.B > 200 {
				white++
			}
		}
	}
	assert.Greater(t, white, 5)
}

func TestRenderRejectsBadSize(t *testing.T) {
	_, err := Render(0, "#000000", "")
	assert.Error(t, err)
}

func TestIconsCache(t *testing.T) {
	icons, err := NewIcons(4)
	require.NoError(t, err)

	first, err := icons.Tray("#3B82F6", "W")
	require.NoError(t, err)
	second, err := icons.Tray("#3b82f6", "W")
	require.NoError(t, err)
	assert.Same(t, first, second)

	dot, err := icons.MenuDot("#3B82F6")
	require.NoError(t, err)
	assert.NotEqual(t, first.Name(), dot.Name())

	_, err = NewIcons(0)
	assert.Error(t, err)
}

func TestIconCacheKeepsAManyProjectMenu(t *testing.T) {
	icons, err := NewIcons(IconCacheSize)
	require.NoError(t, err)

	first := make(map[string]any, 60)
	for i := 0; i < 60; i++ {
		hex := fmt.Sprintf("#%06X", i*0x040404)
		dot, err := icons.MenuDot(hex)
		require.NoError(t, err)
		first[hex] = dot
	}
	for hex, dot := range first {
		again, err := icons.MenuDot(hex)
		require.NoError(t, err)
		assert.Same(t, dot, again, "menu dot %s rendered twice", hex)
	}
}
