package app

import "strings"

// CityList returns the configured refresh cities with blank entries removed.
// Comma separated environment values often carry stray spaces.
func (c RefreshConfig) CityList() []string {
	cities := make([]string, 0, len(c.Cities))
	for _, city := range c.Cities {
		city = strings.TrimSpace(city)
		if city == "" {
			continue
		}
		cities = append(cities, city)
	}
	return cities
}
