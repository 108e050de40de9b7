// Package scenario runs scripted replanning sessions on grid maps described in YAML.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lintang-b-s/replanx/pkg/grid"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoMap         = errors.New("scenario: either map or rows is required")
	ErrUnknownAction = errors.New("scenario: unknown step action")
	ErrInvalidStep   = errors.New("scenario: invalid step")
)

type Action string

const (
	ACTION_PLAN     Action = "plan"
	ACTION_MOVE     Action = "move"
	ACTION_BLOCK    Action = "block"
	ACTION_UNBLOCK  Action = "unblock"
	ACTION_SET_COST Action = "set_cost"
)

type Scenario struct {
	Name         string     `yaml:"name"`
	Map          string     `yaml:"map"`
	Rows         []string   `yaml:"rows"`
	Connectivity string     `yaml:"connectivity"`
	Heuristic    string     `yaml:"heuristic"`
	Start        *grid.Cell `yaml:"start"`
	Goal         *grid.Cell `yaml:"goal"`
	Steps        []Step     `yaml:"steps"`

	// directory the map path is resolved against
	baseDir string
}

// Step is one scripted action. Which fields apply depends on Action:
// plan uses ExpectCost/ExpectFound, move uses Cell or Advance, block/unblock use Cells and
// set_cost uses From, To and Cost.
type Step struct {
	Action      Action      `yaml:"action"`
	Cell        *grid.Cell  `yaml:"cell,omitempty"`
	Advance     int         `yaml:"advance,omitempty"`
	Cells       []grid.Cell `yaml:"cells,omitempty"`
	From        *grid.Cell  `yaml:"from,omitempty"`
	To          *grid.Cell  `yaml:"to,omitempty"`
	Cost        *float64    `yaml:"cost,omitempty"`
	ExpectCost  *float64    `yaml:"expect_cost,omitempty"`
	ExpectFound *bool       `yaml:"expect_found,omitempty"`
}

func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	sc.baseDir = filepath.Dir(filename)
	return sc, nil
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	if sc.Map == "" && len(sc.Rows) == 0 {
		return ErrNoMap
	}
	if _, err := grid.ParseConnectivity(sc.Connectivity); err != nil {
		return err
	}
	if _, err := grid.HeuristicByName(sc.Heuristic, grid.Conn4); err != nil {
		return err
	}
	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Action {
	case ACTION_PLAN:
		return nil
	case ACTION_MOVE:
		if st.Cell == nil && st.Advance <= 0 {
			return fmt.Errorf("%w: move needs cell or a positive advance", ErrInvalidStep)
		}
	case ACTION_BLOCK, ACTION_UNBLOCK:
		if len(st.Cells) == 0 {
			return fmt.Errorf("%w: %s needs cells", ErrInvalidStep, st.Action)
		}
	case ACTION_SET_COST:
		if st.From == nil || st.To == nil || st.Cost == nil {
			return fmt.Errorf("%w: set_cost needs from, to and cost", ErrInvalidStep)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, st.Action)
	}
	return nil
}

// LoadMap builds the grid and resolves start and goal; explicit start/goal override map markers.
func (sc *Scenario) LoadMap() (*grid.Map, grid.Cell, grid.Cell, error) {
	conn, err := grid.ParseConnectivity(sc.Connectivity)
	if err != nil {
		return nil, grid.Cell{}, grid.Cell{}, err
	}

	var m *grid.Map
	if len(sc.Rows) > 0 {
		m, err = grid.ParseRows(sc.Rows, conn)
	} else {
		path := sc.Map
		if !filepath.IsAbs(path) && sc.baseDir != "" {
			path = filepath.Join(sc.baseDir, path)
		}
		m, err = grid.ReadMap(path, conn)
	}
	if err != nil {
		return nil, grid.Cell{}, grid.Cell{}, err
	}

	if sc.Start != nil {
		m.Start, m.HasStart = *sc.Start, true
	}
	if sc.Goal != nil {
		m.Goal, m.HasGoal = *sc.Goal, true
	}
	start, goal, err := m.StartGoal()
	if err != nil {
		return nil, grid.Cell{}, grid.Cell{}, err
	}
	if !m.Grid.InBounds(start) || !m.Grid.InBounds(goal) {
		return nil, grid.Cell{}, grid.Cell{}, grid.ErrOutOfBounds
	}
	return m, start, goal, nil
}
