package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	geomodel "github.com/crowdshield/dashboard/backend/internal/model/geo"
)

// FallbackShelter is returned when no shelter file can be read.
var FallbackShelter = geomodel.Shelter{Name: "Fallback Shelter", Lat: 9.93, Lon: 76.26, Capacity: 50}

// LoadHazards reads hazard polygons from a GeoJSON feature collection. A
// missing file yields no hazards. With spreadKm > 0 each zone grows to its
// bounding box padded by that distance.
func LoadHazards(path string, spreadKm float64) ([]geomodel.Hazard, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hazards: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode hazards %s: %w", path, err)
	}

	hazards := make([]geomodel.Hazard, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name := f.Properties.MustString("name", "")
		if name == "" {
			name = f.Properties.MustString("hazard", fmt.Sprintf("Hazard %d", i+1))
		}
		geom := f.Geometry
		if spreadKm > 0 {
			geom = geo.BoundPad(geom.Bound(), spreadKm*1000).ToPolygon()
		}
		hazards = append(hazards, geomodel.Hazard{
			Name:       name,
			Risk:       geomodel.NormalizeRisk(f.Properties.MustString("risk", geomodel.RiskHigh)),
			Geometry:   geom,
			Properties: map[string]any(f.Properties),
		})
	}
	return hazards, nil
}

// HazardFeatures converts hazards back to GeoJSON with map styling
// properties.
func HazardFeatures(hazards []geomodel.Hazard) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, h := range hazards {
		if h.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(h.Geometry)
		f.Properties["name"] = h.Name
		f.Properties["risk"] = h.Risk
		f.Properties["color"] = geomodel.RiskColor(h.Risk)
		fc.Append(f)
	}
	return fc
}

// LoadShelters reads name,lat,lon,capacity rows. A missing or unreadable
// file yields FallbackShelter; the error is still returned for logging.
func LoadShelters(path string) ([]geomodel.Shelter, error) {
	var rows []shelterRow
	if err := readCSV(path, &rows); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		return []geomodel.Shelter{FallbackShelter}, err
	}
	shelters := make([]geomodel.Shelter, 0, len(rows))
	for _, r := range rows {
		lat, lon, ok := parseLatLon(r.Lat, r.Lon)
		if !ok {
			continue
		}
		capacity, _ := strconv.Atoi(strings.TrimSpace(r.Capacity))
		shelters = append(shelters, geomodel.Shelter{Name: strings.TrimSpace(r.Name), Lat: lat, Lon: lon, Capacity: capacity})
	}
	return shelters, nil
}

// LoadCrowd reads id,lat,lon,people rows. A missing file yields none.
func LoadCrowd(path string) ([]geomodel.CrowdPoint, error) {
	var rows []crowdRow
	err := readCSV(path, &rows)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	points := make([]geomodel.CrowdPoint, 0, len(rows))
	for _, r := range rows {
		lat, lon, ok := parseLatLon(r.Lat, r.Lon)
		if !ok {
			continue
		}
		people, _ := strconv.Atoi(strings.TrimSpace(r.People))
		points = append(points, geomodel.CrowdPoint{ID: strings.TrimSpace(r.ID), Lat: lat, Lon: lon, People: people})
	}
	return points, nil
}

// PointFeatures renders shelters and crowd samples as GeoJSON points.
func PointFeatures(shelters []geomodel.Shelter, crowd []geomodel.CrowdPoint) (*geojson.FeatureCollection, *geojson.FeatureCollection) {
	sfc := geojson.NewFeatureCollection()
	for _, s := range shelters {
		f := geojson.NewFeature(orb.Point{s.Lon, s.Lat})
		f.Properties["name"] = s.Name
		f.Properties["capacity"] = s.Capacity
		sfc.Append(f)
	}
	cfc := geojson.NewFeatureCollection()
	for _, c := range crowd {
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["id"] = c.ID
		f.Properties["people"] = c.People
		cfc.Append(f)
	}
	return sfc, cfc
}

func parseLatLon(latRaw, lonRaw string) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat == 0 && lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}

type shelterRow struct {
	Name     string `csv:"name"`
	Lat      string `csv:"lat"`
	Lon      string `csv:"lon"`
	Capacity string `csv:"capacity"`
}

type crowdRow struct {
	ID     string `csv:"id"`
	Lat    string `csv:"lat"`
	Lon    string `csv:"lon"`
	People string `csv:"people"`
}

func init() {
	gocsv.FailIfUnmatchedStructTags = true
	gocsv.SetHeaderNormalizer(func(h string) string {
		return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	})
}

// readCSV decodes path into out by header name. Every tagged column must be
// present in the header.
func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(r, out); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
