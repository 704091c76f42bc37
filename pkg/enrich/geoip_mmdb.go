package enrich

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// MMDB answers lookups from a local MaxMind database. Both City and
// Country editions are accepted; Country editions leave City empty.
type MMDB struct {
	reader *geoip2.Reader
	city   bool
}

func OpenMMDB(path string) (*MMDB, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db %s: %w", path, err)
	}
	kind := reader.Metadata().DatabaseType
	switch {
	case strings.Contains(kind, "City"):
		return &MMDB{reader: reader, city: true}, nil
	case strings.Contains(kind, "Country"):
		return &MMDB{reader: reader}, nil
	default:
		_ = reader.Close()
		return nil, fmt.Errorf("geoip db %s: unsupported database type %q", path, kind)
	}
}

func (m *MMDB) Lookup(_ context.Context, ip net.IP) (GeoInfo, error) {
	if !m.city {
		rec, err := m.reader.Country(ip)
		if err != nil {
			return GeoInfo{}, err
		}
		return GeoInfo{Country: rec.Country.IsoCode}, nil
	}
	rec, err := m.reader.City(ip)
	if err != nil {
		return GeoInfo{}, err
	}
	return GeoInfo{Country: rec.Country.IsoCode, City: rec.City.Names["en"]}, nil
}

func (m *MMDB) Close() error {
	return m.reader.Close()
}
