package geo

import (
	"math"

	"github.com/mikelor/routing2/pkg/datastructure"
)

// Slippy map tile arithmetic. The world at zoom z is a 2^z x 2^z grid and
// the tile at column x, row y has local id y*2^z + x.

// TileCount returns the number of tiles per axis at zoom.
func TileCount(zoom int) uint32 {
	return 1 << uint(zoom)
}

// TileID returns the id of the tile containing lat/lon at zoom.
func TileID(zoom int, lat, lon float64) uint32 {
	n := float64(TileCount(zoom))

	x := int((lon + 180.0) / 360.0 * n)
	latRad := degreeToRadians(lat)
	y := int((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n)

	max := int(TileCount(zoom)) - 1
	if x < 0 {
		x = 0
	} else if x > max {
		x = max
	}
	if y < 0 {
		y = 0
	} else if y > max {
		y = max
	}
	return uint32(y)*TileCount(zoom) + uint32(x)
}

// TileXY splits a tile id into its column and row.
func TileXY(zoom int, tileID uint32) (x, y uint32) {
	n := TileCount(zoom)
	return tileID % n, tileID / n
}

// TileBounds returns the lon/lat rectangle covered by a tile.
func TileBounds(zoom int, tileID uint32) datastructure.BoundingBox {
	x, y := TileXY(zoom, tileID)
	n := float64(TileCount(zoom))

	minLon := float64(x)/n*360.0 - 180.0
	maxLon := float64(x+1)/n*360.0 - 180.0
	maxLat := tileRowLat(float64(y), n)
	minLat := tileRowLat(float64(y+1), n)

	return datastructure.NewBoundingBox(minLat, minLon, maxLat, maxLon)
}

func tileRowLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1.0-2.0*y/n))) * 180.0 / math.Pi
}
