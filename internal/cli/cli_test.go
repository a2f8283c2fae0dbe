package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pebbe/proj/v9"
	"github.com/pebbe/proj/v9/internal/config"
	"github.com/pebbe/proj/v9/internal/projtest"
)

type result struct {
	stdout, stderr string
	code           int
}

func executeApp(t *testing.T, a *app, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout.String(), stderr.String(), exitCode(err)}
}

func execute(t *testing.T, m *projtest.Module, args ...string) result {
	t.Helper()
	a := &app{
		open: func(context.Context, config.Config, *zap.Logger) (proj.Module, error) { return m, nil },
		log:  zap.NewNop(),
	}
	return executeApp(t, a, args...)
}

func TestRun(t *testing.T) {
	m := projtest.New()
	r := execute(t, m, "run")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, `Starting tests
+++++ Running test "proj_info"
+++++ Running test "projinfo"
+++++ Running test "convert"
+++++ Running test "axes"
+++++ Running test "invalid_crs"
Number of tests run: 5
`, r.stdout)
	assert.Zero(t, m.LiveContexts())
}

func TestRunSelected(t *testing.T) {
	r := execute(t, projtest.New(), "run", "--case", "axes", "--case", "convert")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, `Starting tests
+++++ Running test "convert"
+++++ Running test "axes"
Number of tests run: 2
`, r.stdout)

	t.Setenv("PROJCHECK_CASES", "proj_info")
	r = execute(t, projtest.New(), "run")
	assert.Contains(t, r.stdout, "Number of tests run: 1")

	r = execute(t, projtest.New(), "run", "--case", "nosuch")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `unknown case "nosuch"`)
}

func TestRunFails(t *testing.T) {
	m := projtest.New()
	m.Minor = 7
	r := execute(t, m, "run")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "Tests failed: selftest: proj_info: PROJ 9.7.0 is older than 9.8")
	assert.NotContains(t, r.stdout, "Number of tests run")
	assert.Empty(t, r.stderr)
}

func TestOpenFails(t *testing.T) {
	a := &app{
		open: func(context.Context, config.Config, *zap.Logger) (proj.Module, error) {
			return nil, errors.New("no library")
		},
		log: zap.NewNop(),
	}
	for _, args := range [][]string{{"run"}, {"info"}, {"axes", "EPSG:4326"}, {"projinfo", "--", "EPSG:4326"}} {
		r := executeApp(t, a, args...)
		assert.Equal(t, 1, r.code, args)
		assert.Contains(t, r.stderr, "Error: no library", args)
	}
}

func TestFlagsReachBackend(t *testing.T) {
	var got config.Config
	a := &app{
		open: func(_ context.Context, cfg config.Config, _ *zap.Logger) (proj.Module, error) {
			got = cfg
			return projtest.New(), nil
		},
		log: zap.NewNop(),
	}
	r := executeApp(t, a, "info", "--backend", "wasm", "--wasm", "/tmp/proj.wasm", "--keeper-debug")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, config.BackendWASM, got.Backend)
	assert.Equal(t, "/tmp/proj.wasm", got.WASMPath)
	assert.True(t, got.KeeperDebug)

	r = executeApp(t, a, "info", "--backend", "wasm")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "needs wasm_path")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cases: [axes]\n"), 0o644))
	r := execute(t, projtest.New(), "run", "--config", path)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Number of tests run: 1")

	require.NoError(t, os.WriteFile(path, []byte("backend: gpu\n"), 0o644))
	r = execute(t, projtest.New(), "run", "--config", path)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `unknown backend "gpu"`)
}

func TestLoggerFromConfig(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "projcheck.log")
	t.Setenv("PROJCHECK_LOG_OUTPUT", logPath)
	t.Setenv("PROJCHECK_LOG_FORMAT", "json")

	m := projtest.New()
	a := &app{open: func(context.Context, config.Config, *zap.Logger) (proj.Module, error) { return m, nil }}
	r := executeApp(t, a, "run", "--case", "proj_info", "--log-level", "debug")
	require.Equal(t, 0, r.code, r.stderr)

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"configuration loaded"`)
	assert.Contains(t, string(b), `"case":"proj_info"`)
	assert.Contains(t, string(b), `"msg":"all tests passed"`)
}

func TestInfo(t *testing.T) {
	r := execute(t, projtest.New(), "info")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, `Release: Rel. 9.8.0, January 1st, 2026
Version: 9.8.0
Search path: /usr/share/proj
Compiled: Jan 15 2026 10:00:00
`, r.stdout)

	m := projtest.New()
	m.BuildDate = ""
	r = execute(t, m, "info")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.NotContains(t, r.stdout, "Compiled")
}

func TestTrans(t *testing.T) {
	r := execute(t, projtest.New(), "trans", "EPSG:4326", "EPSG:32633", "52", "13.5")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "397027.0183 5762100.4897\n", r.stdout)

	r = execute(t, projtest.New(), "trans", "--inverse", "EPSG:4326", "EPSG:32633", "500000", "0", "10")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "0.0000 15.0000 10.0000\n", r.stdout)

	r = execute(t, projtest.New(), "trans", "EPSG:4326", "EPSG:32633", "52", "east")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `invalid coordinate "east"`)

	r = execute(t, projtest.New(), "trans", "EPSG:4326", "EPSG:32633", "52")
	assert.Equal(t, 1, r.code)
}

type floatSpy struct {
	*projtest.Module
	floats []float64
}

func (s *floatSpy) WriteFloat64(p proj.Ptr, v float64) error {
	s.floats = append(s.floats, v)
	return s.Module.WriteFloat64(p, v)
}

func TestTransEpoch(t *testing.T) {
	for _, tc := range []struct {
		args  []string
		epoch float64
	}{
		{[]string{"trans", "EPSG:4326", "EPSG:32633", "52", "13.5"}, math.Inf(1)},
		{[]string{"trans", "--epoch", "2025.5", "EPSG:4326", "EPSG:32633", "52", "13.5"}, 2025.5},
	} {
		m := &floatSpy{Module: projtest.New()}
		a := &app{
			open: func(context.Context, config.Config, *zap.Logger) (proj.Module, error) { return m, nil },
			log:  zap.NewNop(),
		}
		r := executeApp(t, a, tc.args...)
		require.Equal(t, 0, r.code, r.stderr)
		assert.Equal(t, "397027.0183 5762100.4897\n", r.stdout)
		require.Len(t, m.floats, 4, tc.args)
		assert.Equal(t, tc.epoch, m.floats[3], tc.args)
	}
}

func TestAxes(t *testing.T) {
	r := execute(t, projtest.New(), "axes", "EPSG:25833")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "1: Easting (E) east, metre, factor 1\n2: Northing (N) north, metre, factor 1\n", r.stdout)

	r = execute(t, projtest.New(), "axes", "EPSG:999999")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Error: ")
}

func TestProjinfo(t *testing.T) {
	r := execute(t, projtest.New(), "projinfo", "--", "EPSG:32633", "-o", "WKT1:GDAL")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "WKT1:GDAL string:")
	assert.Contains(t, r.stdout, `AUTHORITY["EPSG","32633"]`)
	assert.Empty(t, r.stderr)

	r = execute(t, projtest.New(), "projinfo", "--", "EPSG:32633", "-o", "invalid")
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "Unrecognized value for option -o: invalid")
	assert.Contains(t, r.stderr, "usage: projinfo ")
	assert.NotContains(t, r.stderr, "Error: exit status")
}

func createProjDB(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "proj.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE metadata (key TEXT, value TEXT)`,
		`CREATE TABLE extent (auth_name TEXT, code TEXT, name TEXT, description TEXT,
			south_lat FLOAT, north_lat FLOAT, west_lon FLOAT, east_lon FLOAT)`,
		`CREATE TABLE usage (object_table_name TEXT, object_auth_name TEXT, object_code TEXT,
			extent_auth_name TEXT, extent_code TEXT)`,
		`CREATE TABLE geodetic_crs (auth_name TEXT, code TEXT, name TEXT, type TEXT, deprecated BOOLEAN)`,
		`CREATE TABLE projected_crs (auth_name TEXT, code TEXT, name TEXT,
			conversion_auth_name TEXT, conversion_code TEXT, deprecated BOOLEAN)`,
		`CREATE TABLE vertical_crs (auth_name TEXT, code TEXT, name TEXT, deprecated BOOLEAN)`,
		`CREATE TABLE compound_crs (auth_name TEXT, code TEXT, name TEXT, deprecated BOOLEAN)`,
		`CREATE TABLE conversion_table (auth_name TEXT, code TEXT, method_auth_name TEXT, method_code TEXT)`,
		`CREATE TABLE conversion_method (auth_name TEXT, code TEXT, name TEXT)`,
		`INSERT INTO metadata VALUES ('DATABASE.LAYOUT.VERSION.MAJOR', '1'), ('DATABASE.LAYOUT.VERSION.MINOR', '5')`,
		`INSERT INTO geodetic_crs VALUES ('EPSG', '4326', 'WGS 84', 'geographic 2D', 0), ('EPSG', '4322', 'WGS 72', 'geographic 2D', 1)`,
		`INSERT INTO projected_crs VALUES ('EPSG', '32633', 'WGS 84 / UTM zone 33N', 'EPSG', '16033', 0)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestListCRS(t *testing.T) {
	dir := t.TempDir()
	path := createProjDB(t, dir)

	r := execute(t, nil, "list-crs", "--db", path)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "EPSG:4326 \"WGS 84\"\nEPSG:32633 \"WGS 84 / UTM zone 33N\"\n", r.stdout)

	r = execute(t, nil, "list-crs", "--db", path, "--type", "geographic,allow_deprecated")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "EPSG:4322 \"WGS 72\" [deprecated]\nEPSG:4326 \"WGS 84\"\n", r.stdout)

	r = execute(t, nil, "list-crs", "--db", path, "--authority", "IGNF")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Empty(t, r.stdout)

	r = execute(t, nil, "list-crs", "--db", path, "--type", "engineering")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "engineering")

	// Found through the search path
	t.Setenv("PROJCHECK_SEARCH_PATHS", t.TempDir()+string(os.PathListSeparator)+dir)
	r = execute(t, nil, "list-crs", "--type", "projected")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "EPSG:32633 \"WGS 84 / UTM zone 33N\"\n", r.stdout)

	t.Setenv("PROJCHECK_SEARCH_PATHS", t.TempDir())
	r = execute(t, nil, "list-crs")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "proj.db not found")
}

func TestVersion(t *testing.T) {
	r := execute(t, nil, "version")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "projcheck dev (commit=none, date=unknown)\n", r.stdout)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("x")))
	assert.Equal(t, 3, exitCode(&exitError{code: 3}))
	assert.Equal(t, "exit status 3", (&exitError{code: 3}).Error())
}
