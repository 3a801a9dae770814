package displayinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Steps is the number of user-facing levels above zero. A level maps to the
// fraction level/Steps understood by xrandr.
const Steps = 10

var (
	ErrDisplayNotFound        = errors.New("display not found")
	ErrBrightnessFieldMissing = errors.New("brightness field missing")
)

type DisplayInfo struct {
	Name     string  `json:"name"`
	Fraction float64 `json:"fraction"`
	Level    int     `json:"level"`
}

// ParseConnected returns the names of connected outputs in the order xrandr
// printed them.
func ParseConnected(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if slices.Contains(fields, "connected") {
			names = append(names, fields[0])
		}
	}
	return names
}

func isHeader(line string) bool {
	return strings.TrimSpace(line) != "" && line[0] != ' ' && line[0] != '\t'
}

// outputBlock returns the header line of the named output followed by its
// indented property and mode lines.
func outputBlock(lines []string, name string) ([]string, bool) {
	start := -1
	for i, line := range lines {
		if start < 0 {
			if isHeader(line) && strings.Fields(line)[0] == name {
				start = i
			}
			continue
		}
		if isHeader(line) {
			return lines[start:i], true
		}
	}
	if start < 0 {
		return nil, false
	}
	return lines[start:], true
}

// ParseBrightness extracts the brightness fraction of the named output from
// `xrandr --verbose` output.
func ParseBrightness(verbose, name string) (float64, error) {
	block, ok := outputBlock(strings.Split(verbose, "\n"), name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDisplayNotFound, name)
	}

	for _, line := range block[1:] {
		if !strings.Contains(strings.ToLower(line), "brightness") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("%w: %s: malformed line %q", ErrBrightnessFieldMissing, name, strings.TrimSpace(line))
		}
		f, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrBrightnessFieldMissing, name, err)
		}
		return f, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrBrightnessFieldMissing, name)
}

// LevelFromFraction rounds a brightness fraction onto the 0..Steps scale.
func LevelFromFraction(f float64) int {
	level := int(math.Round(f * Steps))
	if level < 0 {
		level = 0
	} else if level > Steps {
		level = Steps
	}
	return level
}

// FractionString formats a level as the one-decimal fraction passed to
// `xrandr --brightness`.
func FractionString(level int) string {
	return strconv.FormatFloat(float64(level)/Steps, 'f', 1, 64)
}

func GetDisplayInfo(verbose, name string) (*DisplayInfo, error) {
	f, err := ParseBrightness(verbose, name)
	if err != nil {
		return nil, err
	}
	return &DisplayInfo{
		Name:     name,
		Fraction: f,
		Level:    LevelFromFraction(f),
	}, nil
}

func GetDisplayInfoJSON(verbose, name string) ([]byte, error) {
	info, err := GetDisplayInfo(verbose, name)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(info, "", "  ")
}
