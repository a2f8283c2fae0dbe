package projtest

import (
	"github.com/pebbe/proj/v9"
)

// A CRS known to the fake library
type CRS struct {
	Auth, Code string
	Name       string
	Type       proj.ObjectType
	Deprecated bool
	Axes       []proj.AxisInfo // nil if the CRS has no coordinate system of its own
	Area       *proj.Area
	WKT1       string
	WKT2       string
	PROJ       string
	PROJJSON   string
}

func (c *CRS) Key() string {
	return c.Auth + ":" + c.Code
}

// A coordinate operation known to the fake library
type Operation struct {
	Auth, Code     string
	Name           string
	Type           proj.ObjectType
	Source, Target string  // keys of the CRS it connects
	Accuracy       float64 // -1 if unknown
	Ballpark       bool
	Area           *proj.Area
	PROJ           string
	WKT2           string

	// Forward mapping of known points, compared on U and V only
	Points map[[2]float64][2]float64
}

var (
	degree = proj.AxisInfo{UnitName: "degree", UnitAuthName: "EPSG", UnitCode: "9122", ConvFactor: 0.017453292519943295}
	metre  = proj.AxisInfo{UnitName: "metre", UnitAuthName: "EPSG", UnitCode: "9001", ConvFactor: 1}
)

func axis(name, abbrev, direction string, unit proj.AxisInfo) proj.AxisInfo {
	unit.Name, unit.Abbrev, unit.Direction = name, abbrev, direction
	return unit
}

const (
	// The pipeline projinfo prints for EPSG:4326 to EPSG:32633
	UTM33Pipeline = "+proj=pipeline +step +proj=axisswap +order=2,1 +step +proj=unitconvert +xy_in=deg +xy_out=rad +step +proj=utm +zone=33 +ellps=WGS84"

	WKT1UTM33 = `PROJCS["WGS 84 / UTM zone 33N",
    GEOGCS["WGS 84",
        DATUM["WGS_1984",
            SPHEROID["WGS 84",6378137,298.257223563,
                AUTHORITY["EPSG","7030"]],
            AUTHORITY["EPSG","6326"]],
        PRIMEM["Greenwich",0,
            AUTHORITY["EPSG","8901"]],
        UNIT["degree",0.0174532925199433,
            AUTHORITY["EPSG","9122"]],
        AUTHORITY["EPSG","4326"]],
    PROJECTION["Transverse_Mercator"],
    PARAMETER["latitude_of_origin",0],
    PARAMETER["central_meridian",15],
    PARAMETER["scale_factor",0.9996],
    PARAMETER["false_easting",500000],
    PARAMETER["false_northing",0],
    UNIT["metre",1,
        AUTHORITY["EPSG","9001"]],
    AXIS["Easting",EAST],
    AXIS["Northing",NORTH],
    AUTHORITY["EPSG","32633"]]`
)

// The library contents of a fresh fake
func DefaultCRS() []*CRS {
	world := &proj.Area{West: -180, South: -90, East: 180, North: 90, Name: "World."}
	utm33 := &proj.Area{West: 12, South: 0, East: 18, North: 84,
		Name: "Between 12°E and 18°E, northern hemisphere between equator and 84°N, onshore and offshore."}
	return []*CRS{
		{
			Auth: "EPSG", Code: "4326", Name: "WGS 84", Type: proj.TypeGeographic2DCRS,
			Axes: []proj.AxisInfo{
				axis("Geodetic latitude", "Lat", "north", degree),
				axis("Geodetic longitude", "Lon", "east", degree),
			},
			Area: world,
			WKT1: `GEOGCS["WGS 84",
    DATUM["WGS_1984",
        SPHEROID["WGS 84",6378137,298.257223563,
            AUTHORITY["EPSG","7030"]],
        AUTHORITY["EPSG","6326"]],
    PRIMEM["Greenwich",0,
        AUTHORITY["EPSG","8901"]],
    UNIT["degree",0.0174532925199433,
        AUTHORITY["EPSG","9122"]],
    AXIS["Latitude",NORTH],
    AXIS["Longitude",EAST],
    AUTHORITY["EPSG","4326"]]`,
			WKT2: `GEOGCRS["WGS 84",
    ENSEMBLE["World Geodetic System 1984 ensemble",
        ELLIPSOID["WGS 84",6378137,298.257223563,
            LENGTHUNIT["metre",1]],
        ENSEMBLEACCURACY[2.0]],
    CS[ellipsoidal,2],
        AXIS["geodetic latitude (Lat)",north,
            ORDER[1],
            ANGLEUNIT["degree",0.0174532925199433]],
        AXIS["geodetic longitude (Lon)",east,
            ORDER[2],
            ANGLEUNIT["degree",0.0174532925199433]],
    ID["EPSG",4326]]`,
			PROJ:     "+proj=longlat +datum=WGS84 +no_defs +type=crs",
			PROJJSON: `{"type":"GeographicCRS","name":"WGS 84","id":{"authority":"EPSG","code":4326}}`,
		},
		{
			Auth: "EPSG", Code: "32633", Name: "WGS 84 / UTM zone 33N", Type: proj.TypeProjectedCRS,
			Axes: []proj.AxisInfo{
				axis("Easting", "E", "east", metre),
				axis("Northing", "N", "north", metre),
			},
			Area: utm33,
			WKT1: WKT1UTM33,
			WKT2: `PROJCRS["WGS 84 / UTM zone 33N",
    BASEGEOGCRS["WGS 84",
        ENSEMBLE["World Geodetic System 1984 ensemble",
            ELLIPSOID["WGS 84",6378137,298.257223563,
                LENGTHUNIT["metre",1]],
            ENSEMBLEACCURACY[2.0]],
        ID["EPSG",4326]],
    CONVERSION["UTM zone 33N",
        METHOD["Transverse Mercator",
            ID["EPSG",9807]]],
    CS[Cartesian,2],
        AXIS["(E)",east,
            ORDER[1],
            LENGTHUNIT["metre",1]],
        AXIS["(N)",north,
            ORDER[2],
            LENGTHUNIT["metre",1]],
    ID["EPSG",32633]]`,
			PROJ:     "+proj=utm +zone=33 +datum=WGS84 +units=m +no_defs +type=crs",
			PROJJSON: `{"type":"ProjectedCRS","name":"WGS 84 / UTM zone 33N","id":{"authority":"EPSG","code":32633}}`,
		},
		{
			Auth: "EPSG", Code: "25833", Name: "ETRS89 / UTM zone 33N", Type: proj.TypeProjectedCRS,
			Axes: []proj.AxisInfo{
				axis("Easting", "E", "east", metre),
				axis("Northing", "N", "north", metre),
			},
			Area: &proj.Area{West: 12, South: 34.79, East: 18.01, North: 84.01,
				Name: "Europe between 12°E and 18°E: Austria; Denmark - offshore and offshore; Germany; Norway including Svalbard - onshore and offshore."},
			WKT1: `PROJCS["ETRS89 / UTM zone 33N",AUTHORITY["EPSG","25833"]]`,
			WKT2: `PROJCRS["ETRS89 / UTM zone 33N",ID["EPSG",25833]]`,
			PROJ: "+proj=utm +zone=33 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs +type=crs",
		},
		{
			Auth: "EPSG", Code: "3855", Name: "EGM2008 height", Type: proj.TypeVerticalCRS,
			Axes: []proj.AxisInfo{
				axis("Gravity-related height", "H", "up", metre),
			},
			Area: world,
			WKT1: `VERT_CS["EGM2008 height",AUTHORITY["EPSG","3855"]]`,
			WKT2: `VERTCRS["EGM2008 height",ID["EPSG",3855]]`,
			PROJ: "+vunits=m +no_defs +type=crs",
		},
		{
			Auth: "EPSG", Code: "7415", Name: "Amersfoort / RD New + NAP height", Type: proj.TypeCompoundCRS,
			Area: &proj.Area{West: 3.2, South: 50.75, East: 7.22, North: 53.7, Name: "Netherlands - onshore."},
			WKT1: `COMPD_CS["Amersfoort / RD New + NAP height",AUTHORITY["EPSG","7415"]]`,
			WKT2: `COMPOUNDCRS["Amersfoort / RD New + NAP height",ID["EPSG",7415]]`,
		},
		{
			Auth: "EPSG", Code: "4269", Name: "NAD83", Type: proj.TypeGeographic2DCRS,
			Axes: []proj.AxisInfo{
				axis("Geodetic latitude", "Lat", "north", degree),
				axis("Geodetic longitude", "Lon", "east", degree),
			},
			WKT2: `GEOGCRS["NAD83",ID["EPSG",4269]]`,
			PROJ: "+proj=longlat +datum=NAD83 +no_defs +type=crs",
		},
	}
}

// The coordinate operations of a fresh fake
func DefaultOperations() []*Operation {
	return []*Operation{
		{
			Auth: "EPSG", Code: "16033", Name: "UTM zone 33N", Type: proj.TypeConversion,
			Source: "EPSG:4326", Target: "EPSG:32633",
			Accuracy: -1,
			Area: &proj.Area{West: 12, South: 0, East: 18, North: 84,
				Name: "Between 12°E and 18°E, northern hemisphere between equator and 84°N, onshore and offshore."},
			PROJ: UTM33Pipeline,
			WKT2: `CONVERSION["UTM zone 33N",METHOD["Transverse Mercator",ID["EPSG",9807]],ID["EPSG",16033]]`,
			Points: map[[2]float64][2]float64{
				{52, 13.5}: {397027.0183, 5762100.4897},
				{0, 15}:    {500000, 0},
			},
		},
		{
			Auth: "EPSG", Code: "1188", Name: "NAD83 to WGS 84 (1)", Type: proj.TypeTransformation,
			Source: "EPSG:4269", Target: "EPSG:4326",
			Accuracy: 4,
			Area:     &proj.Area{West: 167.65, South: 14.92, East: -40.73, North: 86.45, Name: "North America - NAD83."},
			PROJ:     "+proj=noop",
		},
		{
			Name: "Ballpark geographic offset from NAD83 to WGS 84", Type: proj.TypeTransformation,
			Source: "EPSG:4269", Target: "EPSG:4326",
			Accuracy: -1, Ballpark: true,
			PROJ: "+proj=noop",
			Points: map[[2]float64][2]float64{
				{45, -75}: {45, -75},
			},
		},
	}
}
