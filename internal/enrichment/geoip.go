// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package enrichment

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"ipdossier/internal/investigation"

	"github.com/oschwald/geoip2-golang"
	"github.com/pterm/pterm"
)

// ErrDisabled is returned by Lookup when no GeoIP database could be loaded.
var ErrDisabled = errors.New("geoip enrichment disabled")

type cacheEntry struct {
	geo      investigation.GeoInfo
	cachedAt time.Time
}

// GeoIPEnricher resolves country, city and ASN data for investigated
// addresses from local MaxMind databases, with an in-memory cache.
type GeoIPEnricher struct {
	cityDB    *geoip2.Reader
	countryDB *geoip2.Reader
	asnDB     *geoip2.Reader
	logger    *pterm.Logger
	cache     map[string]cacheEntry
	cacheMu   sync.RWMutex
	enabled   bool
	cacheSize int
	now       func() time.Time
}

// NewGeoIPEnricher creates a new GeoIP enricher
// Handles City, Country, and ASN databases - works with any combination available
func NewGeoIPEnricher(cityDBPath, countryDBPath, asnDBPath string, logger *pterm.Logger, cacheSize int) *GeoIPEnricher {
	if cacheSize <= 0 {
		cacheSize = 10000
	}

	enricher := &GeoIPEnricher{
		logger:    logger,
		cache:     make(map[string]cacheEntry),
		cacheSize: cacheSize,
		now:       time.Now,
	}

	open := func(kind, path string) *geoip2.Reader {
		if path == "" {
			return nil
		}
		reader, err := geoip2.Open(path)
		if err != nil {
			logger.Warn("GeoIP database not available",
				logger.Args("kind", kind, "path", path, "error", err))
			return nil
		}
		logger.Info("Loaded GeoIP database", logger.Args("kind", kind, "path", path))
		enricher.enabled = true
		return reader
	}

	enricher.cityDB = open("city", cityDBPath)
	enricher.countryDB = open("country", countryDBPath)
	enricher.asnDB = open("asn", asnDBPath)

	if !enricher.enabled {
		logger.Warn("GeoIP enrichment disabled - no databases available")
	}
	return enricher
}

// Lookup implements investigation.Enricher.
func (g *GeoIPEnricher) Lookup(ip string) (*investigation.GeoInfo, error) {
	if !g.enabled {
		return nil, ErrDisabled
	}

	g.cacheMu.RLock()
	cached, exists := g.cache[ip]
	g.cacheMu.RUnlock()
	if exists {
		g.logger.Trace("GeoIP cache hit", g.logger.Args("ip", ip, "country", cached.geo.Country))
		geo := cached.geo
		return &geo, nil
	}

	g.logger.Trace("GeoIP cache miss, performing lookup", g.logger.Args("ip", ip))
	geo, err := g.resolve(ip)
	if err != nil {
		return nil, err
	}
	g.store(ip, *geo)
	return geo, nil
}

func (g *GeoIPEnricher) resolve(ip string) (*investigation.GeoInfo, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid IP: %s", ip)
	}

	geo := &investigation.GeoInfo{}
	found := false

	// City is preferred: it carries country and coordinates as well
	if g.cityDB != nil {
		record, err := g.cityDB.City(parsed)
		if err == nil && record.Country.IsoCode != "" {
			geo.Country = record.Country.IsoCode
			geo.CountryName = record.Country.Names["en"]
			geo.City = record.City.Names["en"]
			geo.Latitude = record.Location.Latitude
			geo.Longitude = record.Location.Longitude
			found = true
		} else if err != nil {
			g.logger.Debug("GeoIP City lookup failed", g.logger.Args("ip", ip, "error", err))
		}
	}

	if !found && g.countryDB != nil {
		record, err := g.countryDB.Country(parsed)
		if err == nil && record.Country.IsoCode != "" {
			geo.Country = record.Country.IsoCode
			geo.CountryName = record.Country.Names["en"]
			found = true
		} else if err != nil {
			g.logger.Debug("GeoIP Country lookup failed", g.logger.Args("ip", ip, "error", err))
		}
	}

	if g.asnDB != nil {
		record, err := g.asnDB.ASN(parsed)
		if err == nil && record.AutonomousSystemNumber != 0 {
			geo.ASN = int(record.AutonomousSystemNumber)
			geo.ASNOrg = record.AutonomousSystemOrganization
			found = true
		} else if err != nil {
			g.logger.Debug("GeoIP ASN lookup failed", g.logger.Args("ip", ip, "error", err))
		}
	}

	if !found {
		return nil, fmt.Errorf("no GeoIP data for %s", ip)
	}
	g.logger.Debug("GeoIP lookup successful",
		g.logger.Args("ip", ip, "country", geo.Country, "city", geo.City, "asn", geo.ASN))
	return geo, nil
}

// store caches geo for ip. A full cache drops its oldest tenth first.
func (g *GeoIPEnricher) store(ip string, geo investigation.GeoInfo) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	if len(g.cache) >= g.cacheSize {
		evictCount := g.cacheSize / 10
		if evictCount < 1 {
			evictCount = 1
		}

		type ipAge struct {
			ip       string
			cachedAt time.Time
		}
		ages := make([]ipAge, 0, len(g.cache))
		for k, entry := range g.cache {
			ages = append(ages, ipAge{ip: k, cachedAt: entry.cachedAt})
		}
		sort.Slice(ages, func(i, j int) bool { return ages[i].cachedAt.Before(ages[j].cachedAt) })

		for _, age := range ages[:evictCount] {
			delete(g.cache, age.ip)
		}
		g.logger.Debug("GeoIP cache eviction performed",
			g.logger.Args(
				"evicted", evictCount,
				"cache_size", len(g.cache),
				"max_size", g.cacheSize,
			))
	}

	g.cache[ip] = cacheEntry{geo: geo, cachedAt: g.now()}
}

// Close closes the GeoIP databases
func (g *GeoIPEnricher) Close() error {
	for _, reader := range []*geoip2.Reader{g.cityDB, g.countryDB, g.asnDB} {
		if reader != nil {
			reader.Close()
		}
	}
	g.logger.Debug("Closed GeoIP databases")
	return nil
}

// IsEnabled returns whether GeoIP enrichment is available
func (g *GeoIPEnricher) IsEnabled() bool {
	return g.enabled
}

// GetCacheSize returns the number of entries in memory cache
func (g *GeoIPEnricher) GetCacheSize() int {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()
	return len(g.cache)
}
