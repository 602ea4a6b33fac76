package export

import (
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geonames/internal/geonames"
)

func points(items ...geonames.GeoName) iter.Seq2[geonames.GeoName, error] {
	return func(yield func(geonames.GeoName, error) bool) {
		for _, g := range items {
			if !yield(g, nil) {
				return
			}
		}
	}
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.shp")

	n, err := WriteShapefile(path, points(
		geonames.GeoName{ID: 2988507, Name: "Paris", Latitude: 48.85341, Longitude: 2.3488},
		geonames.GeoName{ID: 2643743, Name: "London", Latitude: 51.50853, Longitude: -0.12574},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		assert.FileExists(t, filepath.Join(filepath.Dir(path), "places"+ext))
	}

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, "GEONAMEID")
	nameIdx := fieldIndex(reader, "NAME")
	require.GreaterOrEqual(t, idIdx, 0)
	require.GreaterOrEqual(t, nameIdx, 0)

	var names []string
	var xs []float64
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		xs = append(xs, p.X)
		names = append(names, attr(reader, nameIdx))
	}
	assert.Equal(t, []string{"Paris", "London"}, names)
	assert.InDelta(t, 2.3488, xs[0], 1e-9)
	assert.InDelta(t, -0.12574, xs[1], 1e-9)
}

func TestWriteShapefile_AppendsExtension(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")

	_, err := WriteShapefile(base, points(geonames.GeoName{ID: 1, Name: "A"}))
	require.NoError(t, err)
	assert.FileExists(t, base+".shp")
	assert.FileExists(t, base+".dbf")
}

func TestWriteShapefile_SourceErrorRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.shp")

	records := func(yield func(geonames.GeoName, error) bool) {
		if !yield(geonames.GeoName{ID: 1, Name: "A"}, nil) {
			return
		}
		yield(geonames.GeoName{}, errors.New("line 2: bad latitude"))
	}
	n, err := WriteShapefile(path, records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad latitude")
	assert.Equal(t, 1, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteExtendedShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.shp")
	pop := int64(2138551)
	records := func(yield func(geonames.ExtendedGeoName, error) bool) {
		yield(geonames.ExtendedGeoName{
			GeoName:      geonames.GeoName{ID: 2988507, Name: "Paris", Latitude: 48.85341, Longitude: 2.3488},
			FeatureClass: "P",
			FeatureCode:  "PPLC",
			CountryCode:  "FR",
			Population:   &pop,
			Timezone:     "Europe/Paris",
		}, nil)
	}

	n, err := WriteExtendedShapefile(path, records)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	require.True(t, reader.Next())
	assert.Equal(t, "PPLC", attr(reader, fieldIndex(reader, "FCODE")))
	assert.Equal(t, "FR", attr(reader, fieldIndex(reader, "COUNTRY")))
	assert.Equal(t, "2138551", attr(reader, fieldIndex(reader, "POP")))
	assert.Equal(t, "Europe/Paris", attr(reader, fieldIndex(reader, "TZ")))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "Paris", 10, "Paris"},
		{"exact", "Paris", 5, "Paris"},
		{"ascii cut", "London", 3, "Lon"},
		{"rune boundary", "Zürich", 2, "Z"},
		{"whole rune", "Zürich", 3, "Zü"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}
