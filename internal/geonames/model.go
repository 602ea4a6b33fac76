// Package geonames holds the GeoNames dump entities together with the codecs
// and composers that map them to and from tab-delimited lines.
package geonames

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID of every GeoNames coordinate (WGS 84).
const SRID = 4326

// GeoName is a named point: the compact view of a GeoNames record.
type GeoName struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ExtendedGeoName carries every column of the 19-field GeoNames dump format
// (allCountries.txt, cities500.txt, ...).
type ExtendedGeoName struct {
	GeoName
	ASCIIName             string    `json:"ascii_name"`
	AlternateNames        []string  `json:"alternate_names,omitempty"`
	FeatureClass          string    `json:"feature_class"`
	FeatureCode           string    `json:"feature_code"`
	CountryCode           string    `json:"country_code"`
	AlternateCountryCodes []string  `json:"alternate_country_codes,omitempty"`
	Admin1Code            string    `json:"admin1_code"`
	Admin2Code            string    `json:"admin2_code"`
	Admin3Code            string    `json:"admin3_code"`
	Admin4Code            string    `json:"admin4_code"`
	Population            *int64    `json:"population,omitempty"`
	Elevation             *int      `json:"elevation,omitempty"` // meters, often blank
	DEM                   *int      `json:"dem,omitempty"`       // digital elevation model, meters
	Timezone              string    `json:"timezone"`
	ModificationDate      time.Time `json:"modification_date"`
}

// Admin1Code is one row of admin1CodesASCII.txt.
type Admin1Code struct {
	Code      string `json:"code"` // e.g. "US.CA"
	Name      string `json:"name"`
	NameASCII string `json:"name_ascii"`
	GeoNameID int    `json:"geoname_id"`
}

// Point returns the location as a WGS 84 point (x = longitude, y = latitude).
func (g GeoName) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{g.Longitude, g.Latitude}).SetSRID(SRID)
}

// EWKB encodes the location as little-endian EWKB, ready for PostGIS.
func (g GeoName) EWKB() ([]byte, error) {
	data, err := ewkb.Marshal(g.Point(), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(err, "geonames: encode point for %d", g.ID)
	}
	return data, nil
}
