package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBoolDefault returns def for an empty value.
func ParseBoolDefault(s string, def bool) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def, fmt.Errorf("invalid boolean %q", s)
	}
	return v, nil
}

func ParseFloatDefault(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func ParseIntDefault(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
