package data

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

//go:embed map.schema.json
var mapSchemaJSON []byte

const mapSchemaURL = "https://gridclash.dev/schemas/map.schema.json"

var (
	mapSchemaOnce sync.Once
	mapSchema     *jsonschema.Schema
	mapSchemaErr  error
)

func compiledMapSchema() (*jsonschema.Schema, error) {
	mapSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(mapSchemaURL, bytes.NewReader(mapSchemaJSON)); err != nil {
			mapSchemaErr = err
			return
		}
		mapSchema, mapSchemaErr = c.Compile(mapSchemaURL)
	})
	return mapSchema, mapSchemaErr
}

// Tile characters used by MapFile.Tiles.
const (
	tileOpen = '.'
	tileWall = '#'
)

// MapFile is the YAML form of a map. Tiles lists rows from the origin row
// down, one character per tile. With Mirror set, walls, resources and agents
// are given for team A only and the mirror half is generated from Symmetry.
type MapFile struct {
	Name      string          `yaml:"name"`
	Width     int             `yaml:"width"`
	Height    int             `yaml:"height"`
	Origin    grid.Location   `yaml:"origin"`
	Symmetry  string          `yaml:"symmetry,omitempty"`
	Seed      *int64          `yaml:"seed,omitempty"`
	Rounds    int             `yaml:"rounds,omitempty"`
	Mirror    bool            `yaml:"mirror,omitempty"`
	Spawns    MapSpawns       `yaml:"spawns"`
	Tiles     []string        `yaml:"tiles"`
	Resources []ResourceEntry `yaml:"resources,omitempty"`
	Agents    []AgentEntry    `yaml:"agents,omitempty"`
}

type MapSpawns struct {
	A grid.Location  `yaml:"A"`
	B *grid.Location `yaml:"B,omitempty"`
}

type ResourceEntry struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Amount int `yaml:"amount"`
}

type AgentEntry struct {
	ID     *int    `yaml:"id,omitempty"`
	Team   string  `yaml:"team"`
	Kind   string  `yaml:"kind,omitempty"`
	X      int     `yaml:"x"`
	Y      int     `yaml:"y"`
	Health float64 `yaml:"health,omitempty"`
}

// DecodeMap checks raw YAML against the map schema and converts it to a
// descriptor. Only the structural checks run here; LoadMap also enforces
// the rules' size bounds and symmetry.
func DecodeMap(raw []byte, rules world.Rules) (*world.MapDescriptor, error) {
	if err := validateMapSchema(raw); err != nil {
		return nil, err
	}
	var f MapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	d, err := f.Descriptor(rules)
	if err != nil {
		return nil, err
	}
	if err := world.CheckShape(d); err != nil {
		return nil, fmt.Errorf("map %s: %w", f.Name, err)
	}
	return d, nil
}

// LoadMap reads a map file and validates it fully.
func LoadMap(path string, rules world.Rules) (*world.MapDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	d, err := DecodeMap(raw, rules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := world.ValidateMap(d, rules); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func validateMapSchema(raw []byte) error {
	schema, err := compiledMapSchema()
	if err != nil {
		return fmt.Errorf("compile map schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse map: %w", err)
	}
	// Round-trip through JSON so numbers and maps take the shapes the
	// validator expects.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", world.ErrInvalidMap, err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %v", world.ErrInvalidMap, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", world.ErrInvalidMap, err)
	}
	return nil
}

// Descriptor converts the file to a descriptor without validating it.
func (f *MapFile) Descriptor(rules world.Rules) (*world.MapDescriptor, error) {
	sym := world.Rotational
	if f.Symmetry != "" {
		s, err := world.ParseSymmetry(f.Symmetry)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", world.ErrInvalidMap, err)
		}
		sym = s
	}
	seed := rules.DefaultSeed
	if f.Seed != nil {
		seed = *f.Seed
	}
	rounds := f.Rounds
	if rounds == 0 {
		rounds = rules.DefaultRoundLimit
	}
	if len(f.Tiles) != f.Height {
		return nil, fmt.Errorf("%w: %d tile rows for height %d", world.ErrInvalidMap, len(f.Tiles), f.Height)
	}

	mb := world.NewMapBuilder(f.Name, f.Width, f.Height, f.Origin, seed).
		WithRules(rules).
		SetSymmetry(sym).
		SetRounds(rounds)
	bounds := world.Bounds{Origin: f.Origin, Width: f.Width, Height: f.Height}
	onMap := func(what string, loc grid.Location) error {
		if !bounds.OnTheMap(loc) {
			return fmt.Errorf("%w: %s %s off the map", world.ErrInvalidMap, what, loc)
		}
		return nil
	}

	for row, line := range f.Tiles {
		if len(line) != f.Width {
			return nil, fmt.Errorf("%w: tile row %d has %d tiles, want %d", world.ErrInvalidMap, row, len(line), f.Width)
		}
		for col := 0; col < len(line); col++ {
			if line[col] != tileWall {
				continue
			}
			loc := f.Origin.Translate(col, row)
			if f.Mirror {
				mb.SetSymmetricWall(loc, true)
			} else {
				mb.SetWall(loc, true)
			}
		}
	}

	for _, r := range f.Resources {
		loc := grid.Loc(r.X, r.Y)
		if err := onMap("resource", loc); err != nil {
			return nil, err
		}
		if f.Mirror {
			mb.SetSymmetricResource(loc, r.Amount)
		} else {
			mb.SetResource(loc, r.Amount)
		}
	}

	if err := onMap("spawn", f.Spawns.A); err != nil {
		return nil, err
	}
	switch {
	case f.Mirror || f.Spawns.B == nil:
		mb.SetSymmetricSpawn(f.Spawns.A)
	default:
		mb.SetSpawn(world.TeamA, f.Spawns.A)
		mb.SetSpawn(world.TeamB, *f.Spawns.B)
	}

	agents, err := f.agents(mb, rules)
	if err != nil {
		return nil, err
	}
	d := mb.Descriptor()
	if agents != nil {
		d.Agents = agents
	}
	return d, nil
}

// agents places mirrored agents through the builder, or converts explicit
// entries. Explicit entries without ids are numbered after the largest given
// id in file order.
func (f *MapFile) agents(mb *world.MapBuilder, rules world.Rules) ([]world.InitialAgent, error) {
	if f.Mirror {
		for _, e := range f.Agents {
			if t, _ := world.ParseTeam(e.Team); t != world.TeamA {
				return nil, fmt.Errorf("%w: mirrored maps list team A agents only", world.ErrInvalidMap)
			}
			mb.AddSymmetricAgent(grid.Loc(e.X, e.Y), e.Health)
		}
		return nil, nil
	}
	if len(f.Agents) == 0 {
		return nil, nil
	}
	next := 0
	for _, e := range f.Agents {
		if e.ID != nil && *e.ID >= next {
			next = *e.ID + 1
		}
	}
	out := make([]world.InitialAgent, 0, len(f.Agents))
	for _, e := range f.Agents {
		team, err := world.ParseTeam(e.Team)
		if err != nil || !team.Valid() {
			return nil, fmt.Errorf("%w: agent team %q", world.ErrInvalidMap, e.Team)
		}
		kind := world.KindCombat
		if e.Kind != "" {
			if kind, err = world.ParseKind(e.Kind); err != nil {
				return nil, fmt.Errorf("%w: %v", world.ErrInvalidMap, err)
			}
		}
		id := next
		if e.ID != nil {
			id = *e.ID
		} else {
			next++
		}
		health := e.Health
		if health == 0 {
			health = rules.InitialHealth
		}
		out = append(out, world.InitialAgent{
			ID:       ecs.EntityID(id),
			Team:     team,
			Kind:     kind,
			Location: grid.Loc(e.X, e.Y),
			Health:   health,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EncodeMap writes d in the explicit (non-mirrored) form.
func EncodeMap(d *world.MapDescriptor) ([]byte, error) {
	bounds := d.Bounds()
	seed := d.Seed
	spawnB := d.Spawns[world.TeamB]
	f := MapFile{
		Name:     d.Name,
		Width:    d.Width,
		Height:   d.Height,
		Origin:   d.Origin,
		Symmetry: d.Symmetry.String(),
		Seed:     &seed,
		Rounds:   d.Rounds,
		Spawns:   MapSpawns{A: d.Spawns[world.TeamA], B: &spawnB},
		Tiles:    make([]string, d.Height),
	}
	var sb strings.Builder
	for row := 0; row < d.Height; row++ {
		sb.Reset()
		for col := 0; col < d.Width; col++ {
			if d.Walls[bounds.Index(d.Origin.Translate(col, row))] {
				sb.WriteByte(tileWall)
			} else {
				sb.WriteByte(tileOpen)
			}
		}
		f.Tiles[row] = sb.String()
	}
	for i, amount := range d.Resources {
		if amount == 0 {
			continue
		}
		loc := bounds.LocationAt(i)
		f.Resources = append(f.Resources, ResourceEntry{X: loc.X, Y: loc.Y, Amount: amount})
	}
	for _, a := range d.Agents {
		id := int(a.ID)
		f.Agents = append(f.Agents, AgentEntry{
			ID:     &id,
			Team:   a.Team.String(),
			X:      a.Location.X,
			Y:      a.Location.Y,
			Health: a.Health,
		})
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
