package geonames

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/geonames/internal/geofile"
)

// Field counts of the supported layouts.
const (
	CompactFields  = 4
	ExtendedFields = 19
	Admin1Fields   = 4
)

// ErrUnsupportedArity is returned by NewGeoNameCodec for a field count that
// maps to no GeoName layout.
var ErrUnsupportedArity = eris.New("geonames: unsupported field count")

var (
	_ geofile.Codec[GeoName]         = CompactGeoNameCodec{}
	_ geofile.Codec[GeoName]         = ExtendedGeoNameCodec{}
	_ geofile.Codec[ExtendedGeoName] = FullGeoNameCodec{}
	_ geofile.Codec[Admin1Code]      = Admin1CodeCodec{}
)

// NewGeoNameCodec returns the GeoName codec for the given layout arity:
// 4 for the compact layout, 19 for the extended dump layout.
func NewGeoNameCodec(arity int) (geofile.Codec[GeoName], error) {
	switch arity {
	case CompactFields:
		return CompactGeoNameCodec{}, nil
	case ExtendedFields:
		return ExtendedGeoNameCodec{}, nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedArity, "%d (valid: %d, %d)", arity, CompactFields, ExtendedFields)
	}
}

// CompactGeoNameCodec reads the 4-field layout: id, name, latitude, longitude.
type CompactGeoNameCodec struct{}

func (CompactGeoNameCodec) ExpectedFields() int { return CompactFields }
func (CompactGeoNameCodec) HasComments() bool   { return false }
func (CompactGeoNameCodec) SkipLines() int      { return 0 }
func (CompactGeoNameCodec) Separator() rune     { return geofile.Tab }

func (CompactGeoNameCodec) Decode(fields []string) (GeoName, error) {
	return decodeGeoName(fields, 0, 1, 2, 3)
}

// ExtendedGeoNameCodec reads the id, name and coordinates out of the
// 19-field dump layout and ignores the other columns.
type ExtendedGeoNameCodec struct{}

func (ExtendedGeoNameCodec) ExpectedFields() int { return ExtendedFields }
func (ExtendedGeoNameCodec) HasComments() bool   { return false }
func (ExtendedGeoNameCodec) SkipLines() int      { return 0 }
func (ExtendedGeoNameCodec) Separator() rune     { return geofile.Tab }

func (ExtendedGeoNameCodec) Decode(fields []string) (GeoName, error) {
	return decodeGeoName(fields, 0, 1, 4, 5)
}

func decodeGeoName(fields []string, idIdx, nameIdx, latIdx, lonIdx int) (GeoName, error) {
	id, err := geofile.ParseInt(fields[idIdx])
	if err != nil {
		return GeoName{}, fieldErr("geonameid", err)
	}
	lat, err := geofile.ParseFloat(fields[latIdx])
	if err != nil {
		return GeoName{}, fieldErr("latitude", err)
	}
	lon, err := geofile.ParseFloat(fields[lonIdx])
	if err != nil {
		return GeoName{}, fieldErr("longitude", err)
	}
	return GeoName{ID: id, Name: fields[nameIdx], Latitude: lat, Longitude: lon}, nil
}

// FullGeoNameCodec reads every column of the 19-field dump layout.
type FullGeoNameCodec struct{}

func (FullGeoNameCodec) ExpectedFields() int { return ExtendedFields }
func (FullGeoNameCodec) HasComments() bool   { return false }
func (FullGeoNameCodec) SkipLines() int      { return 0 }
func (FullGeoNameCodec) Separator() rune     { return geofile.Tab }

func (FullGeoNameCodec) Decode(fields []string) (ExtendedGeoName, error) {
	base, err := decodeGeoName(fields, 0, 1, 4, 5)
	if err != nil {
		return ExtendedGeoName{}, err
	}

	pop, err := geofile.ParseOptionalInt64(fields[14])
	if err != nil {
		return ExtendedGeoName{}, fieldErr("population", err)
	}
	elev, err := geofile.ParseOptionalInt(fields[15])
	if err != nil {
		return ExtendedGeoName{}, fieldErr("elevation", err)
	}
	dem, err := geofile.ParseOptionalInt(fields[16])
	if err != nil {
		return ExtendedGeoName{}, fieldErr("dem", err)
	}
	modified, err := geofile.ParseDate(fields[18])
	if err != nil {
		return ExtendedGeoName{}, fieldErr("modification date", err)
	}

	return ExtendedGeoName{
		GeoName:               base,
		ASCIIName:             fields[2],
		AlternateNames:        geofile.SplitList(fields[3]),
		FeatureClass:          fields[6],
		FeatureCode:           fields[7],
		CountryCode:           fields[8],
		AlternateCountryCodes: geofile.SplitList(fields[9]),
		Admin1Code:            fields[10],
		Admin2Code:            fields[11],
		Admin3Code:            fields[12],
		Admin4Code:            fields[13],
		Population:            pop,
		Elevation:             elev,
		DEM:                   dem,
		Timezone:              fields[17],
		ModificationDate:      modified,
	}, nil
}

// Admin1CodeCodec reads admin1CodesASCII.txt: code, name, ascii name, geonameid.
type Admin1CodeCodec struct{}

func (Admin1CodeCodec) ExpectedFields() int { return Admin1Fields }
func (Admin1CodeCodec) HasComments() bool   { return false }
func (Admin1CodeCodec) SkipLines() int      { return 0 }
func (Admin1CodeCodec) Separator() rune     { return geofile.Tab }

func (Admin1CodeCodec) Decode(fields []string) (Admin1Code, error) {
	id, err := geofile.ParseInt(fields[3])
	if err != nil {
		return Admin1Code{}, fieldErr("geonameid", err)
	}
	return Admin1Code{
		Code:      fields[0],
		Name:      fields[1],
		NameASCII: fields[2],
		GeoNameID: id,
	}, nil
}

func fieldErr(name string, err error) error {
	return eris.Wrapf(err, "geonames: %s", name)
}
