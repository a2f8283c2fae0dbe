package projdb_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	_ "modernc.org/sqlite"

	"github.com/pebbe/proj/v9/projdb"
)

// A small subset of the proj.db schema, enough for the catalogue
var schema = []string{
	`CREATE TABLE metadata (key TEXT NOT NULL PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE extent (auth_name TEXT, code TEXT, name TEXT, description TEXT,
		south_lat FLOAT, north_lat FLOAT, west_lon FLOAT, east_lon FLOAT, deprecated BOOLEAN)`,
	`CREATE TABLE usage (auth_name TEXT, code TEXT, object_table_name TEXT,
		object_auth_name TEXT, object_code TEXT, extent_auth_name TEXT, extent_code TEXT)`,
	`CREATE TABLE geodetic_crs (auth_name TEXT, code TEXT, name TEXT, type TEXT, deprecated BOOLEAN)`,
	`CREATE TABLE projected_crs (auth_name TEXT, code TEXT, name TEXT,
		conversion_auth_name TEXT, conversion_code TEXT, deprecated BOOLEAN)`,
	`CREATE TABLE vertical_crs (auth_name TEXT, code TEXT, name TEXT, deprecated BOOLEAN)`,
	`CREATE TABLE compound_crs (auth_name TEXT, code TEXT, name TEXT, deprecated BOOLEAN)`,
	`CREATE TABLE conversion_table (auth_name TEXT, code TEXT, method_auth_name TEXT, method_code TEXT)`,
	`CREATE TABLE conversion_method (auth_name TEXT, code TEXT, name TEXT)`,

	`INSERT INTO metadata VALUES ('DATABASE.LAYOUT.VERSION.MAJOR', '1'), ('DATABASE.LAYOUT.VERSION.MINOR', '5')`,
	`INSERT INTO extent VALUES
		('EPSG', '1262', 'World', 'World.', -90, 90, -180, 180, 0),
		('EPSG', '1644', 'World - N hemisphere - 12°E to 18°E', 'Between 12°E and 18°E, northern hemisphere between equator and 84°N, onshore and offshore.', 0, 84, 12, 18, 0),
		('EPSG', '1262b', 'World again', 'World, second usage.', -90, 90, -180, 180, 0)`,
	`INSERT INTO geodetic_crs VALUES
		('EPSG', '4326', 'WGS 84', 'geographic 2D', 0),
		('EPSG', '4979', 'WGS 84', 'geographic 3D', 0),
		('EPSG', '4978', 'WGS 84', 'geocentric', 0),
		('EPSG', '4322', 'WGS 72', 'geographic 2D', 1),
		('IGNF', 'WGS84G', 'WGS84 geographiques (dms)', 'geographic 2D', 0)`,
	`INSERT INTO projected_crs VALUES ('EPSG', '32633', 'WGS 84 / UTM zone 33N', 'EPSG', '16033', 0)`,
	`INSERT INTO vertical_crs VALUES ('EPSG', '3855', 'EGM2008 height', 0)`,
	`INSERT INTO compound_crs VALUES ('EPSG', '9518', 'WGS 84 + EGM2008 height', 0)`,
	`INSERT INTO conversion_table VALUES ('EPSG', '16033', 'EPSG', '9807')`,
	`INSERT INTO conversion_method VALUES ('EPSG', '9807', 'Transverse Mercator')`,
	`INSERT INTO usage VALUES
		('EPSG', 'u1', 'geodetic_crs', 'EPSG', '4326', 'EPSG', '1262'),
		('EPSG', 'u2', 'geodetic_crs', 'EPSG', '4326', 'EPSG', '1262b'),
		('EPSG', 'u3', 'geodetic_crs', 'EPSG', '4979', 'EPSG', '1262'),
		('EPSG', 'u4', 'geodetic_crs', 'EPSG', '4978', 'EPSG', '1262'),
		('EPSG', 'u5', 'projected_crs', 'EPSG', '32633', 'EPSG', '1644'),
		('EPSG', 'u6', 'vertical_crs', 'EPSG', '3855', 'EPSG', '1262')`,
}

func createDB(t *testing.T, stmts []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), projdb.FileName)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, db.Close())
	return path
}

func open(t *testing.T) *projdb.DB {
	t.Helper()
	db, err := projdb.Open(createDB(t, schema))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strs(list []projdb.CRSInfo) []string {
	var s []string
	for _, c := range list {
		s = append(s, c.String())
	}
	return s
}

func TestOpen(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	path := createDB(t, schema)
	db, err := projdb.Open(path, projdb.WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer db.Close()

	major, minor := db.LayoutVersion()
	assert.Equal(t, 1, major)
	assert.Equal(t, 5, minor)
	assert.Equal(t, path, db.Path())
	assert.Equal(t, 1, logs.FilterMessage("proj.db opened").Len())
}

func TestOpenErrors(t *testing.T) {
	_, err := projdb.Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = projdb.Open(createDB(t, []string{`CREATE TABLE other (x INTEGER)`}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PROJ database")

	_, err = projdb.Open(createDB(t, schema[:1]))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no layout version")
}

func TestReadOnly(t *testing.T) {
	path := createDB(t, schema)
	db, err := projdb.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// The file is untouched by Open
	check, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer check.Close()
	var n int
	require.NoError(t, check.QueryRow(`SELECT COUNT(*) FROM geodetic_crs`).Scan(&n))
	assert.Equal(t, 5, n)
}

func TestListCRS(t *testing.T) {
	db := open(t)

	list, err := db.ListCRS(context.Background(), projdb.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`EPSG:4326 "WGS 84"`,
		`EPSG:4978 "WGS 84"`,
		`EPSG:4979 "WGS 84"`,
		`IGNF:WGS84G "WGS84 geographiques (dms)"`,
		`EPSG:32633 "WGS 84 / UTM zone 33N"`,
		`EPSG:3855 "EGM2008 height"`,
		`EPSG:9518 "WGS 84 + EGM2008 height"`,
	}, strs(list))

	wgs84 := list[0]
	assert.Equal(t, projdb.Geographic2D, wgs84.Type)
	require.NotNil(t, wgs84.Area)
	assert.Equal(t, "World.", wgs84.Area.Name, "first usage wins")
	assert.Equal(t, -180.0, wgs84.Area.West)

	utm := list[4]
	assert.Equal(t, projdb.Projected, utm.Type)
	assert.Equal(t, "Transverse Mercator", utm.ProjectionMethod)
	assert.Equal(t, 12.0, utm.Area.West)
	assert.Equal(t, 84.0, utm.Area.North)

	assert.Nil(t, list[3].Area, "IGNF CRS without usage")
	assert.Nil(t, list[6].Area)
}

func TestListCRSFilter(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	for _, tc := range []struct {
		filter string
		auth   []string
		area   string
		want   []string
	}{
		{filter: "projected", want: []string{`EPSG:32633 "WGS 84 / UTM zone 33N"`}},
		{filter: "geographic_3d,vertical", want: []string{`EPSG:4979 "WGS 84"`, `EPSG:3855 "EGM2008 height"`}},
		{filter: "geocentric", want: []string{`EPSG:4978 "WGS 84"`}},
		{filter: "geographic,allow_deprecated", auth: []string{"EPSG"}, want: []string{
			`EPSG:4322 "WGS 72" [deprecated]`, `EPSG:4326 "WGS 84"`, `EPSG:4979 "WGS 84"`}},
		{filter: "geodetic", auth: []string{"IGNF"}, want: []string{`IGNF:WGS84G "WGS84 geographiques (dms)"`}},
		{filter: "compound", want: []string{`EPSG:9518 "WGS 84 + EGM2008 height"`}},
		{area: "NORTHERN hemisphere", want: []string{`EPSG:32633 "WGS 84 / UTM zone 33N"`}},
		{auth: []string{"IGNF", "EPSG"}, area: "world", want: []string{
			`EPSG:4326 "WGS 84"`, `EPSG:4978 "WGS 84"`, `EPSG:4979 "WGS 84"`, `EPSG:3855 "EGM2008 height"`}},
		{area: "second usage", want: []string{`EPSG:4326 "WGS 84"`}},
		{auth: []string{"ESRI"}, want: nil},
	} {
		f, err := projdb.ParseFilter(tc.filter)
		require.NoError(t, err)
		f.Authorities = tc.auth
		f.AreaName = tc.area

		list, err := db.ListCRS(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, tc.want, strs(list), "%s %v %s", tc.filter, tc.auth, tc.area)
	}
}

func TestListCRSAreaOfLaterUsage(t *testing.T) {
	db := open(t)
	list, err := db.ListCRS(context.Background(), projdb.Filter{AreaName: "second"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "4326", list[0].Code)
	assert.Equal(t, "World, second usage.", list[0].Area.Name)
}

func TestListCRSCanceled(t *testing.T) {
	db := open(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.ListCRS(ctx, projdb.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFilter(t *testing.T) {
	f, err := projdb.ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, projdb.Filter{}, f)

	f, err = projdb.ParseFilter("Geodetic,ALLOW_DEPRECATED")
	require.NoError(t, err)
	assert.True(t, f.AllowDeprecated)
	assert.Equal(t, []projdb.CRSType{projdb.Geographic2D, projdb.Geographic3D, projdb.Geocentric}, f.Types)

	_, err = projdb.ParseFilter("projected,engineering")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engineering")
}

func TestLocate(t *testing.T) {
	empty := t.TempDir()
	withDB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(withDB, projdb.FileName), nil, 0o644))
	// A directory of that name does not count
	withDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(withDir, projdb.FileName), 0o755))

	sep := string(os.PathListSeparator)
	path, err := projdb.Locate(strings.Join([]string{empty, withDir, withDB}, sep))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(withDB, projdb.FileName), path)

	_, err = projdb.Locate(empty + sep + withDir)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = projdb.Locate("")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
