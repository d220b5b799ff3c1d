package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSVRange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       HSVRange
		wantErr bool
	}{
		{"plain", HSVRange{HSV{90, 50, 50}, HSV{130, 255, 255}}, false},
		{"wrapping hue", HSVRange{HSV{170, 50, 50}, HSV{10, 255, 255}}, false},
		{"single point", HSVRange{HSV{0, 0, 0}, HSV{0, 0, 0}}, false},
		{"hue above max", HSVRange{HSV{90, 0, 0}, HSV{180, 255, 255}}, true},
		{"saturation inverted", HSVRange{HSV{90, 200, 0}, HSV{100, 100, 255}}, true},
		{"value inverted", HSVRange{HSV{90, 0, 200}, HSV{100, 255, 100}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHSVRange_ContainsWrappingHue(t *testing.T) {
	red := HSVRange{Lower: HSV{175, 50, 50}, Upper: HSV{5, 255, 255}}
	require.True(t, red.WrapsHue())

	assert.True(t, red.Contains(HSV{178, 200, 200}))
	assert.True(t, red.Contains(HSV{0, 200, 200}))
	assert.True(t, red.Contains(HSV{5, 200, 200}))
	assert.False(t, red.Contains(HSV{90, 200, 200}))
	assert.False(t, red.Contains(HSV{6, 200, 200}))
	assert.False(t, red.Contains(HSV{178, 10, 200}), "saturation below range")
}

func TestHSVRange_ContainsPlain(t *testing.T) {
	blue := HSVRange{Lower: HSV{90, 50, 50}, Upper: HSV{130, 255, 255}}
	assert.False(t, blue.WrapsHue())
	assert.True(t, blue.Contains(HSV{120, 255, 255}))
	assert.False(t, blue.Contains(HSV{60, 255, 255}))
	assert.False(t, blue.Contains(HSV{120, 255, 20}))
}

func TestHSVFromInts(t *testing.T) {
	c, err := HSVFromInts(179, 255, 0)
	require.NoError(t, err)
	assert.Equal(t, HSV{179, 255, 0}, c)
	assert.Equal(t, [3]int{179, 255, 0}, c.Ints())

	for _, in := range [][3]int{{180, 0, 0}, {-1, 0, 0}, {0, 256, 0}, {0, 0, -5}} {
		_, err := HSVFromInts(in[0], in[1], in[2])
		assert.ErrorIs(t, err, ErrInvalidRange, "%v", in)
	}
}

func TestPresets(t *testing.T) {
	table := Presets()
	assert.Equal(t, []string{"blue", "green", "red"}, PresetNames(table))

	for name, r := range table {
		assert.NoError(t, r.Validate(), name)
	}

	red, err := Preset("RED")
	require.NoError(t, err)
	assert.True(t, red.WrapsHue())
	assert.True(t, red.Contains(HSV{178, 200, 200}))
	assert.True(t, red.Contains(HSV{2, 200, 200}))

	blue, err := Preset(DefaultPreset)
	require.NoError(t, err)
	assert.Equal(t, HSVRange{HSV{90, 50, 50}, HSV{130, 255, 255}}, blue)

	_, err = Preset("purple")
	assert.Error(t, err)

	// Mutating the copy must not leak into the built-in table.
	table["blue"] = HSVRange{}
	blue, _ = Preset("blue")
	assert.Equal(t, uint8(90), blue.Lower.H)
}
