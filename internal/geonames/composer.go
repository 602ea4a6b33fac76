package geonames

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/sells-group/geonames/internal/geofile"
)

var (
	_ geofile.Composer[GeoName]         = GeoNameComposer{}
	_ geofile.Composer[ExtendedGeoName] = ExtendedGeoNameComposer{}
	_ geofile.Composer[Admin1Code]      = Admin1CodeComposer{}
)

// GeoNameComposer writes the compact 4-field layout. A nil Enc writes UTF-8,
// as for every composer in this package.
type GeoNameComposer struct {
	Enc encoding.Encoding
}

func (GeoNameComposer) Separator() rune               { return geofile.Tab }
func (c GeoNameComposer) Encoding() encoding.Encoding { return c.Enc }

func (GeoNameComposer) Encode(g GeoName) ([]string, error) {
	return []string{
		strconv.Itoa(g.ID),
		g.Name,
		geofile.FormatFloat(g.Latitude),
		geofile.FormatFloat(g.Longitude),
	}, nil
}

// ExtendedGeoNameComposer writes the 19-field dump layout.
type ExtendedGeoNameComposer struct {
	Enc encoding.Encoding
}

func (ExtendedGeoNameComposer) Separator() rune               { return geofile.Tab }
func (c ExtendedGeoNameComposer) Encoding() encoding.Encoding { return c.Enc }

func (ExtendedGeoNameComposer) Encode(g ExtendedGeoName) ([]string, error) {
	var modified string
	if !g.ModificationDate.IsZero() {
		modified = g.ModificationDate.Format(geofile.DateLayout)
	}
	return []string{
		strconv.Itoa(g.ID),
		g.Name,
		g.ASCIIName,
		strings.Join(g.AlternateNames, ","),
		geofile.FormatFloat(g.Latitude),
		geofile.FormatFloat(g.Longitude),
		g.FeatureClass,
		g.FeatureCode,
		g.CountryCode,
		strings.Join(g.AlternateCountryCodes, ","),
		g.Admin1Code,
		g.Admin2Code,
		g.Admin3Code,
		g.Admin4Code,
		formatOptional(g.Population),
		formatOptional(g.Elevation),
		formatOptional(g.DEM),
		g.Timezone,
		modified,
	}, nil
}

// formatOptional renders a blank column for nil.
func formatOptional[N int | int64](v *N) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(int64(*v), 10)
}

// Admin1CodeComposer writes the admin1CodesASCII.txt layout.
type Admin1CodeComposer struct {
	Enc encoding.Encoding
}

func (Admin1CodeComposer) Separator() rune               { return geofile.Tab }
func (c Admin1CodeComposer) Encoding() encoding.Encoding { return c.Enc }

func (Admin1CodeComposer) Encode(a Admin1Code) ([]string, error) {
	return []string{a.Code, a.Name, a.NameASCII, strconv.Itoa(a.GeoNameID)}, nil
}
