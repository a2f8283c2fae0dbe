// Package projdb reads the catalogue of coordinate reference systems from
// proj.db, the SQLite database that ships with PROJ. It needs no PROJ
// library, only the database file.
package projdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pebbe/proj/v9"
)

// Name of the database file in the PROJ search path
const FileName = "proj.db"

// Type of a CRS, as stored in proj.db
type CRSType string

const (
	Geographic2D CRSType = "geographic 2D"
	Geographic3D CRSType = "geographic 3D"
	Geocentric   CRSType = "geocentric"
	Projected    CRSType = "projected"
	Vertical     CRSType = "vertical"
	Compound     CRSType = "compound"
)

// One entry of the catalogue
type CRSInfo struct {
	AuthName   string
	Code       string
	Name       string
	Type       CRSType
	Deprecated bool
	// nil if the CRS has no extent
	Area *proj.Area
	// Projection method of a projected CRS
	ProjectionMethod string
}

// Formats the entry the way projinfo --list-crs does
func (c CRSInfo) String() string {
	s := c.AuthName + ":" + c.Code + ` "` + c.Name + `"`
	if c.Deprecated {
		s += " [deprecated]"
	}
	return s
}

// Selection of ListCRS. The zero value lists every CRS that is not
// deprecated.
type Filter struct {
	Authorities     []string  // empty for all
	Types           []CRSType // empty for all
	AllowDeprecated bool
	// Case-insensitive substring of the name of the area of use
	AreaName string
}

// ParseFilter reads a comma separated list-crs filter: allow_deprecated,
// geodetic, geocentric, geographic, geographic_2d, geographic_3d,
// vertical, projected and compound.
func ParseFilter(s string) (Filter, error) {
	var f Filter
	if s == "" {
		return f, nil
	}
	for _, token := range strings.Split(s, ",") {
		switch strings.ToLower(token) {
		case "allow_deprecated":
			f.AllowDeprecated = true
		case "geodetic":
			f.Types = append(f.Types, Geographic2D, Geographic3D, Geocentric)
		case "geocentric":
			f.Types = append(f.Types, Geocentric)
		case "geographic":
			f.Types = append(f.Types, Geographic2D, Geographic3D)
		case "geographic_2d":
			f.Types = append(f.Types, Geographic2D)
		case "geographic_3d":
			f.Types = append(f.Types, Geographic3D)
		case "vertical":
			f.Types = append(f.Types, Vertical)
		case "projected":
			f.Types = append(f.Types, Projected)
		case "compound":
			f.Types = append(f.Types, Compound)
		default:
			return Filter{}, fmt.Errorf("projdb: unrecognized value for list-crs filter: %s", token)
		}
	}
	return f, nil
}

func (f Filter) hasType(t CRSType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, ft := range f.Types {
		if ft == t {
			return true
		}
	}
	return false
}

// DB is an open proj.db, read-only
type DB struct {
	db    *sql.DB
	path  string
	log   *zap.Logger
	major int
	minor int
}

type Option func(*DB)

func WithLogger(log *zap.Logger) Option {
	return func(d *DB) {
		if log != nil {
			d.log = log
		}
	}
}

// Locate returns the first proj.db found in the directories of a PROJ
// search path.
func Locate(searchpath string) (string, error) {
	for _, dir := range filepath.SplitList(searchpath) {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, FileName)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("projdb: %s not found in %q: %w", FileName, searchpath, os.ErrNotExist)
}

// Open opens the database at path read-only and checks its layout version
func Open(path string, opts ...Option) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("projdb: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("projdb: open %s: %w", path, err)
	}

	d := &DB{db: db, path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}

	if d.major, d.minor, err = d.layoutVersion(); err != nil {
		db.Close()
		return nil, err
	}
	d.log.Debug("proj.db opened",
		zap.String("path", path),
		zap.Int("layout_major", d.major),
		zap.Int("layout_minor", d.minor))
	return d, nil
}

var errNotPROJ = errors.New("not a PROJ database")

func (d *DB) layoutVersion() (major, minor int, err error) {
	rows, err := d.db.Query(`SELECT key, value FROM metadata WHERE key IN
		('DATABASE.LAYOUT.VERSION.MAJOR', 'DATABASE.LAYOUT.VERSION.MINOR')`)
	if err != nil {
		return 0, 0, fmt.Errorf("projdb: %s: %w: %v", d.path, errNotPROJ, err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return 0, 0, fmt.Errorf("projdb: %s: %w", d.path, err)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, 0, fmt.Errorf("projdb: %s: bad %s %q", d.path, key, value)
		}
		if strings.HasSuffix(key, "MAJOR") {
			major = n
		} else {
			minor = n
		}
		found++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("projdb: %s: %w", d.path, err)
	}
	if found != 2 {
		return 0, 0, fmt.Errorf("projdb: %s: %w: no layout version", d.path, errNotPROJ)
	}
	return major, minor, nil
}

// Layout version of the database schema
func (d *DB) LayoutVersion() (major, minor int) {
	return d.major, d.minor
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	return d.db.Close()
}

// The tables holding CRS, with the type each row has
var crsTables = []struct {
	table string
	typ   string // column, or a literal type
	join  string
	extra string
}{
	{table: "geodetic_crs", typ: "c.type", extra: "NULL"},
	{table: "projected_crs", typ: "'projected'", extra: "cm.name",
		join: ` LEFT JOIN conversion_table conv ON
			c.conversion_auth_name = conv.auth_name AND c.conversion_code = conv.code
		LEFT JOIN conversion_method cm ON
			conv.method_auth_name = cm.auth_name AND conv.method_code = cm.code`},
	{table: "vertical_crs", typ: "'vertical'", extra: "NULL"},
	{table: "compound_crs", typ: "'compound'", extra: "NULL"},
}

func (d *DB) listQuery(f Filter) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for i, t := range crsTables {
		q := fmt.Sprintf(`SELECT %d, c.auth_name, c.code, c.name, %s, c.deprecated,
			a.west_lon, a.south_lat, a.east_lon, a.north_lat, a.description, %s, u.rowid
		FROM %s c
		LEFT JOIN usage u ON u.object_table_name = '%s' AND
			u.object_auth_name = c.auth_name AND u.object_code = c.code
		LEFT JOIN extent a ON a.auth_name = u.extent_auth_name AND a.code = u.extent_code%s`,
			i, t.typ, t.extra, t.table, t.table, t.join)
		if len(f.Authorities) > 0 {
			q += " WHERE c.auth_name IN (?" + strings.Repeat(", ?", len(f.Authorities)-1) + ")"
			for _, a := range f.Authorities {
				args = append(args, a)
			}
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " UNION ALL ") + " ORDER BY 1, 2, 3, 13", args
}

// ListCRS lists the CRS of the database that pass the filter, grouped by
// table and ordered by authority and code. A CRS with several areas of use
// is listed once, with the first that passes the filter.
func (d *DB) ListCRS(ctx context.Context, f Filter) ([]CRSInfo, error) {
	query, args := d.listQuery(f)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("projdb: list CRS: %w", err)
	}
	defer rows.Close()

	area := strings.ToLower(f.AreaName)
	seen := make(map[string]bool)
	var list []CRSInfo
	for rows.Next() {
		var (
			info         CRSInfo
			table        int
			typ          string
			w, s, e, n   sql.NullFloat64
			areaName, pm sql.NullString
			usage        sql.NullInt64
		)
		if err := rows.Scan(&table, &info.AuthName, &info.Code, &info.Name, &typ, &info.Deprecated,
			&w, &s, &e, &n, &areaName, &pm, &usage); err != nil {
			return nil, fmt.Errorf("projdb: list CRS: %w", err)
		}
		info.Type = CRSType(typ)
		info.ProjectionMethod = pm.String
		if w.Valid && s.Valid && e.Valid && n.Valid {
			info.Area = &proj.Area{West: w.Float64, South: s.Float64, East: e.Float64, North: n.Float64, Name: areaName.String}
		}

		if area != "" && (info.Area == nil || !strings.Contains(strings.ToLower(info.Area.Name), area)) {
			continue
		}
		key := typ + "/" + info.AuthName + ":" + info.Code
		if seen[key] {
			continue
		}
		seen[key] = true

		if info.Deprecated && !f.AllowDeprecated {
			continue
		}
		if !f.hasType(info.Type) {
			continue
		}
		list = append(list, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projdb: list CRS: %w", err)
	}
	d.log.Debug("listed CRS", zap.Int("count", len(list)), zap.Strings("authorities", f.Authorities))
	return list, nil
}
