package geolocate

import (
	"errors"
	"net"
	"testing"

	"sealevel/internal/region"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCities map[string]*geoip2.City

func (f fakeCities) City(ip net.IP) (*geoip2.City, error) {
	if c, ok := f[ip.String()]; ok {
		return c, nil
	}
	return nil, errors.New("not found")
}

func city(name, iso string, lat, lon float64) *geoip2.City {
	c := &geoip2.City{}
	c.City.Names = map[string]string{"en": name}
	c.Country.IsoCode = iso
	c.Location.Latitude = lat
	c.Location.Longitude = lon
	return c
}

func TestLocateNearestRegion(t *testing.T) {
	db := fakeCities{
		"203.0.113.7":  city("Hoboken", "US", 40.744, -74.032),
		"198.51.100.9": city("Fort Lauderdale", "US", 26.122, -80.137),
		"192.0.2.1":    city("", "", 0, 0),
	}
	l := New(db, region.Default())

	s, err := l.Locate("203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "newYorkCitySRTM", s.ID)
	assert.Equal(t, "Hoboken", s.City)
	assert.Less(t, s.Distance, 10000.0)

	s, err = l.Locate(" 198.51.100.9 ")
	require.NoError(t, err)
	assert.Equal(t, "US", s.Country)
	assert.NotEmpty(t, s.ID)

	_, err = l.Locate("192.0.2.1")
	assert.ErrorIs(t, err, ErrNoLocation)

	_, err = l.Locate("not-an-ip")
	assert.ErrorIs(t, err, ErrBadIP)

	_, err = l.Locate("192.0.2.200")
	assert.Error(t, err)
}

func TestLocateEmptyCatalog(t *testing.T) {
	empty, err := region.NewCatalog(nil)
	require.NoError(t, err)
	l := New(fakeCities{"203.0.113.7": city("Hoboken", "US", 40.744, -74.032)}, empty)
	_, err = l.Locate("203.0.113.7")
	assert.ErrorIs(t, err, ErrNoRegion)
}
