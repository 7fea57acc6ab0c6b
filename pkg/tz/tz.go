package tz

import (
	"fmt"
	"strings"
	"time"
)

// Load resolves an IANA zone name. Empty and "Local" return time.Local,
// "UTC" returns time.UTC.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "", "Local", "local":
		return time.Local, nil
	case "UTC", "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: load %s: %w", name, err)
	}
	return loc, nil
}

// MustLoad is Load for package-level values and tests.
func MustLoad(name string) *time.Location {
	loc, err := Load(name)
	if err != nil {
		panic(err.Error())
	}
	return loc
}
