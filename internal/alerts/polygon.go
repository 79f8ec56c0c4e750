package alerts

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// zoneGeometry assembles one MultiPolygon from the geometries of the
// affected forecast zones.
func (c *Client) zoneGeometry(ctx context.Context, zones []string) (*geojson.Geometry, error) {
	mp := orb.MultiPolygon{}
	for _, z := range zones {
		resp, err := c.zoneBody(ctx, z)
		if err != nil {
			return nil, err
		}
		polys, err := flattenPolygons(resp.Geometry.Geometry())
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", z, err)
		}
		mp = append(mp, polys...)
	}
	return geojson.NewGeometry(mp), nil
}

// flattenPolygons returns the polygons of a Polygon, MultiPolygon, or a
// collection of those.
func flattenPolygons(g orb.Geometry) ([]orb.Polygon, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	case orb.Collection:
		var out []orb.Polygon
		for _, member := range g {
			switch m := member.(type) {
			case orb.Polygon:
				out = append(out, m)
			case orb.MultiPolygon:
				out = append(out, m...)
			default:
				return nil, fmt.Errorf("invalid polygon: collection member %s", member.GeoJSONType())
			}
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("invalid polygon: empty geometry")
	default:
		return nil, fmt.Errorf("invalid polygon: %s", g.GeoJSONType())
	}
}
