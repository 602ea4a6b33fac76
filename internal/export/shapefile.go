// Package export writes GeoNames records to GIS formats.
package export

import (
	"iter"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geonames/internal/geonames"
)

// NameSize is the width of the NAME attribute in bytes.
const NameSize = 100

type schema[T any] struct {
	fields []shp.Field
	point  func(T) geonames.GeoName
	values func(T) []any
}

var compactSchema = schema[geonames.GeoName]{
	fields: []shp.Field{
		shp.NumberField("GEONAMEID", 10),
		shp.StringField("NAME", NameSize),
	},
	point: func(g geonames.GeoName) geonames.GeoName { return g },
	values: func(g geonames.GeoName) []any {
		return []any{g.ID, truncate(g.Name, NameSize)}
	},
}

var extendedSchema = schema[geonames.ExtendedGeoName]{
	fields: []shp.Field{
		shp.NumberField("GEONAMEID", 10),
		shp.StringField("NAME", NameSize),
		shp.StringField("FCLASS", 1),
		shp.StringField("FCODE", 10),
		shp.StringField("COUNTRY", 2),
		shp.NumberField("POP", 12),
		shp.StringField("TZ", 40),
	},
	point: func(g geonames.ExtendedGeoName) geonames.GeoName { return g.GeoName },
	values: func(g geonames.ExtendedGeoName) []any {
		return []any{
			g.ID,
			truncate(g.Name, NameSize),
			truncate(g.FeatureClass, 1),
			truncate(g.FeatureCode, 10),
			truncate(g.CountryCode, 2),
			population(g),
			truncate(g.Timezone, 40),
		}
	},
}

// WriteShapefile writes each GeoName as a POINT with GEONAMEID and NAME
// attributes. It returns the number of points written. On error the partial
// shapefile is removed.
func WriteShapefile(path string, records iter.Seq2[geonames.GeoName, error]) (int, error) {
	return write(path, records, compactSchema)
}

// WriteExtendedShapefile is WriteShapefile with feature class, feature code,
// country, population and timezone attributes.
func WriteExtendedShapefile(path string, records iter.Seq2[geonames.ExtendedGeoName, error]) (int, error) {
	return write(path, records, extendedSchema)
}

func write[T any](path string, records iter.Seq2[T, error], s schema[T]) (n int, err error) {
	base := basename(path)
	w, err := shp.Create(base+".shp", shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}

	defer func() {
		w.Close()
		// go-shp v0.1.1 names the attribute table "<base>dbf".
		if _, statErr := os.Stat(base + "dbf"); statErr == nil {
			if renameErr := os.Rename(base+"dbf", base+".dbf"); renameErr != nil && err == nil {
				err = eris.Wrap(renameErr, "export: rename attribute table")
			}
		}
		if err != nil {
			removeShapefile(base)
		}
	}()

	if err := w.SetFields(s.fields); err != nil {
		return 0, eris.Wrap(err, "export: set fields")
	}

	for rec, recErr := range records {
		if recErr != nil {
			return n, recErr
		}
		g := s.point(rec)
		row := int(w.Write(&shp.Point{X: g.Longitude, Y: g.Latitude}))
		for field, value := range s.values(rec) {
			if err := w.WriteAttribute(row, field, value); err != nil {
				return n, eris.Wrapf(err, "export: write attributes of %d", g.ID)
			}
		}
		n++
	}

	zap.L().Debug("shapefile written",
		zap.String("component", "export"),
		zap.String("path", base+".shp"),
		zap.Int("points", n),
	)
	return n, nil
}

func basename(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-4]
	}
	return path
}

func removeShapefile(base string) {
	for _, ext := range []string{".shp", ".shx", ".dbf", "dbf"} {
		_ = os.Remove(base + ext)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// population is 0 for an unknown population; DBF numbers carry no NULL here.
func population(g geonames.ExtendedGeoName) int {
	if g.Population == nil {
		return 0
	}
	return int(*g.Population)
}
