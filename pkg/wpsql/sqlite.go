// Package wpsql exports a built mission to an SQLite database for
// inspection with ordinary SQL tools.
package wpsql

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/stronnag/ges2wpmz/pkg/mission"
)

const SCHEMA = `CREATE TABLE IF NOT EXISTS mission (id integer NOT NULL PRIMARY KEY,
 finish text, rclost text, tspeed double precision, drone integer, subdrone integer,
 heightmode text, distance double precision, duration double precision,
 speed double precision, pitch double precision, refalt double precision);
CREATE TABLE IF NOT EXISTS placemarks (mid integer, idx integer,
 lat double precision, lon double precision, alt double precision,
 height double precision, speed double precision, turnmode text,
 damping double precision, hmode text, hangle double precision,
 henable integer, source text);
CREATE TABLE IF NOT EXISTS actions (mid integer, gid integer, aid integer,
 startidx integer, endidx integer, trig text, actuator text, pitch text)`

const IMISSION = `insert into mission (id,finish,rclost,tspeed,drone,subdrone,heightmode,distance,duration,speed,pitch,refalt)
 values (:id,:finish,:rclost,:tspeed,:drone,:subdrone,:heightmode,:distance,:duration,:speed,:pitch,:refalt)`
const IPLACE = `insert into placemarks (mid,idx,lat,lon,alt,height,speed,turnmode,damping,hmode,hangle,henable,source)
 values (:mid,:idx,:lat,:lon,:alt,:height,:speed,:turnmode,:damping,:hmode,:hangle,:henable,:source)`
const IACTION = `insert into actions (mid,gid,aid,startidx,endidx,trig,actuator,pitch)
 values (:mid,:gid,:aid,:startidx,:endidx,:trig,:actuator,:pitch)`

type MissionRow struct {
	ID         int     `db:"id"`
	Finish     string  `db:"finish"`
	RCLost     string  `db:"rclost"`
	TSpeed     float64 `db:"tspeed"`
	Drone      int     `db:"drone"`
	SubDrone   int     `db:"subdrone"`
	HeightMode string  `db:"heightmode"`
	Distance   float64 `db:"distance"`
	Duration   float64 `db:"duration"`
	Speed      float64 `db:"speed"`
	Pitch      float64 `db:"pitch"`
	RefAlt     float64 `db:"refalt"`
}

type PlacemarkRow struct {
	Mid      int     `db:"mid"`
	Idx      int     `db:"idx"`
	Lat      float64 `db:"lat"`
	Lon      float64 `db:"lon"`
	Alt      float64 `db:"alt"`
	Height   float64 `db:"height"`
	Speed    float64 `db:"speed"`
	TurnMode string  `db:"turnmode"`
	Damping  float64 `db:"damping"`
	HMode    string  `db:"hmode"`
	HAngle   float64 `db:"hangle"`
	HEnable  int     `db:"henable"`
	Source   string  `db:"source"`
}

type ActionRow struct {
	Mid      int    `db:"mid"`
	Gid      int    `db:"gid"`
	Aid      int    `db:"aid"`
	StartIdx int    `db:"startidx"`
	EndIdx   int    `db:"endidx"`
	Trigger  string `db:"trig"`
	Actuator string `db:"actuator"`
	Pitch    string `db:"pitch"`
}

type DBL struct {
	db    *sqlx.DB
	count int
}

// Open creates a fresh database at fn, replacing any existing file.
func Open(fn string) (*DBL, error) {
	os.Remove(fn)
	db, err := sqlx.Open("sqlite", fn)
	if err != nil {
		return nil, errors.Wrapf(err, "db %s", fn)
	}
	if _, err = db.Exec(SCHEMA); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "tables %s", fn)
	}
	return &DBL{db: db}, nil
}

func (d *DBL) Close() error {
	return d.db.Close()
}

func pitch_of(a mission.Action) string {
	for _, p := range a.Params {
		if p.Key == "gimbalPitchRotateAngle" {
			return p.Value
		}
	}
	return ""
}

// WriteMission stores one document in a single transaction and returns
// its mission id. Each call adds a new id.
func (d *DBL) WriteMission(m *mission.Document) (int, error) {
	d.count++
	mid := d.count
	tx, err := d.db.Beginx()
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	c := m.Config
	mr := MissionRow{ID: mid, Finish: c.FinishAction, RCLost: c.RCLostAction, TSpeed: c.TransitionalSpeed,
		Drone: c.DroneEnum, SubDrone: c.DroneSubEnum, HeightMode: m.HeightMode, Distance: m.Distance,
		Duration: m.Duration, Speed: m.AutoFlightSpeed, Pitch: m.Pitch, RefAlt: m.ReferenceAlt}
	if _, err := tx.NamedExec(IMISSION, mr); err != nil {
		return 0, errors.Wrap(err, "mission")
	}
	for _, p := range m.Placemarks {
		pr := PlacemarkRow{Mid: mid, Idx: p.Index, Lat: p.Lat, Lon: p.Lon, Alt: p.Alt,
			Height: p.ExecuteHeight, Speed: p.WaypointSpeed, TurnMode: p.TurnMode,
			Damping: p.TurnDamping, HMode: p.Heading.Mode, HAngle: p.Heading.Angle,
			Source: filepath.Base(p.Source)}
		if p.Heading.AngleEnable {
			pr.HEnable = 1
		}
		if _, err := tx.NamedExec(IPLACE, pr); err != nil {
			return 0, errors.Wrapf(err, "placemark %d", p.Index)
		}
		for _, g := range p.ActionGroups {
			for _, a := range g.Actions {
				ar := ActionRow{Mid: mid, Gid: g.ID, Aid: a.ID, StartIdx: g.StartIndex, EndIdx: g.EndIndex,
					Trigger: g.TriggerType, Actuator: a.ActuatorFunc, Pitch: pitch_of(a)}
				if _, err := tx.NamedExec(IACTION, ar); err != nil {
					return 0, errors.Wrapf(err, "action %d", a.ID)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return mid, nil
}

// Mission reads back the stored header of mission mid.
func (d *DBL) Mission(mid int) (MissionRow, error) {
	var mr MissionRow
	err := d.db.Get(&mr, `SELECT * FROM mission WHERE id = $1`, mid)
	return mr, errors.Wrapf(err, "mission %d", mid)
}

// Placemarks reads back mission mid's placemarks in index order.
func (d *DBL) Placemarks(mid int) ([]PlacemarkRow, error) {
	var rows []PlacemarkRow
	err := d.db.Select(&rows, `SELECT * FROM placemarks WHERE mid = $1 ORDER BY idx`, mid)
	return rows, errors.Wrapf(err, "placemarks %d", mid)
}

// Actions reads back mission mid's actions in id order.
func (d *DBL) Actions(mid int) ([]ActionRow, error) {
	var rows []ActionRow
	err := d.db.Select(&rows, `SELECT * FROM actions WHERE mid = $1 ORDER BY aid`, mid)
	return rows, errors.Wrapf(err, "actions %d", mid)
}
