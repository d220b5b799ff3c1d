package core

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultPreset is the color the cloak starts with.
const DefaultPreset = "blue"

var presets = map[string]HSVRange{
	"blue": {
		Lower: HSV{H: 90, S: 50, V: 50},
		Upper: HSV{H: 130, S: 255, V: 255},
	},
	"green": {
		Lower: HSV{H: 35, S: 50, V: 50},
		Upper: HSV{H: 85, S: 255, V: 255},
	},
	// Red sits on both sides of hue 0.
	"red": {
		Lower: HSV{H: 170, S: 50, V: 50},
		Upper: HSV{H: 10, S: 255, V: 255},
	},
}

// Presets returns a copy of the built-in color table.
func Presets() map[string]HSVRange {
	result := make(map[string]HSVRange, len(presets))
	for name, r := range presets {
		result[name] = r
	}
	return result
}

// Preset looks up a built-in color range by case-insensitive name.
func Preset(name string) (HSVRange, error) {
	r, ok := presets[strings.ToLower(name)]
	if !ok {
		return HSVRange{}, fmt.Errorf("unknown preset: %s", name)
	}
	return r, nil
}

// PresetNames returns the sorted names of a preset table.
func PresetNames(table map[string]HSVRange) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
