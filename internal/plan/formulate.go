package plan

import (
	"fmt"
	"math"

	"tripsolver/internal/model"
)

// VarKind tags a model column.
type VarKind int8

const (
	Continuous VarKind = iota
	Binary
)

// Column is one decision variable of the mixed-integer model.
type Column struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
	Cost  float64 // objective coefficient
}

// Nonzero is one coefficient of a constraint row.
type Nonzero struct {
	Col int
	Val float64
}

// Row is one linear constraint: Lower <= sum(Coeffs) <= Upper.
type Row struct {
	Name   string
	Lower  float64
	Upper  float64
	Coeffs []Nonzero
}

// Model is the opaque formulation handed to an Engine. The objective is
// always minimization. It keeps typed accessors so the interpreter can map
// a variable assignment back to graph terms without knowing column order.
type Model struct {
	Cols []Column
	Rows []Row

	graph    *Graph
	arcVar   map[[2]int]int
	startVar []int
	endVar   []int
	orderVar []int
}

// Graph returns the graph the model was formulated over.
func (m *Model) Graph() *Graph { return m.graph }

// ArcVar returns the column index of x_ij, if the arc exists.
func (m *Model) ArcVar(i, j int) (int, bool) {
	v, ok := m.arcVar[[2]int{i, j}]
	return v, ok
}

// StartVar returns the column index of s_i.
func (m *Model) StartVar(i int) int { return m.startVar[i] }

// EndVar returns the column index of e_i.
func (m *Model) EndVar(i int) int { return m.endVar[i] }

// OrderVar returns the column index of the MTZ order variable u_i.
func (m *Model) OrderVar(i int) int { return m.orderVar[i] }

// Formulate builds the decision variables, objective and constraint set over
// the graph. It never invokes solving itself.
//
// Variables: binary x_ij per arc, binary s_i/e_i per city, continuous u_i
// per city (visitation order). Constraints: one start, one end, flow balance,
// degree bounds, mandatory visitation, MTZ subtour elimination, trip-domain
// restrictions.
func Formulate(g *Graph, req model.TravelRequest) *Model {
	n := g.Order()
	m := &Model{
		graph:    g,
		arcVar:   map[[2]int]int{},
		startVar: make([]int, n),
		endVar:   make([]int, n),
		orderVar: make([]int, n),
	}
	addCol := func(c Column) int {
		m.Cols = append(m.Cols, c)
		return len(m.Cols) - 1
	}

	for _, a := range g.Arcs {
		m.arcVar[[2]int{a.From, a.To}] = addCol(Column{
			Name:  fmt.Sprintf("x_%d_%d", a.From, a.To),
			Kind:  Binary,
			Upper: 1,
			Cost:  a.Weight,
		})
	}

	// A city may start the trip only if it is an origin. The end set depends
	// on the trip domain: round-trip ends where it starts, open-jaw may end
	// at any origin or destination, one-way ends at a destination.
	for i := 0; i < n; i++ {
		sUp, eUp := 0.0, 0.0
		if g.isOrigin[i] {
			sUp = 1
		}
		switch {
		case req.RoundTrip:
			if g.isOrigin[i] {
				eUp = 1
			}
		case req.OpenJaw:
			if g.isOrigin[i] || g.isDest[i] {
				eUp = 1
			}
		default:
			if g.isDest[i] {
				eUp = 1
			}
		}
		m.startVar[i] = addCol(Column{Name: fmt.Sprintf("s_%d", i), Kind: Binary, Upper: sUp})
		m.endVar[i] = addCol(Column{Name: fmt.Sprintf("e_%d", i), Kind: Binary, Upper: eUp})
	}
	for i := 0; i < n; i++ {
		m.orderVar[i] = addCol(Column{Name: fmt.Sprintf("u_%d", i), Kind: Continuous, Upper: float64(n)})
	}

	inf := math.Inf(1)
	addRow := func(r Row) { m.Rows = append(m.Rows, r) }

	// Exactly one start, exactly one end.
	ones := func(vars []int) []Nonzero {
		nz := make([]Nonzero, len(vars))
		for i, v := range vars {
			nz[i] = Nonzero{Col: v, Val: 1}
		}
		return nz
	}
	addRow(Row{Name: "one_start", Lower: 1, Upper: 1, Coeffs: ones(m.startVar)})
	addRow(Row{Name: "one_end", Lower: 1, Upper: 1, Coeffs: ones(m.endVar)})

	// At least one leg, so open-jaw and round-trip domains cannot collapse
	// into an empty itinerary that starts and ends at home.
	if len(g.Arcs) > 0 {
		legs := make([]Nonzero, 0, len(g.Arcs))
		for _, a := range g.Arcs {
			legs = append(legs, Nonzero{Col: m.arcVar[[2]int{a.From, a.To}], Val: 1})
		}
		addRow(Row{Name: "nonempty", Lower: 1, Upper: inf, Coeffs: legs})
	}

	// Flow balance and degree bounds per city.
	for k := 0; k < n; k++ {
		var balance, inflow, outflow []Nonzero
		for j := 0; j < n; j++ {
			if v, ok := m.arcVar[[2]int{k, j}]; ok {
				balance = append(balance, Nonzero{Col: v, Val: 1})
				outflow = append(outflow, Nonzero{Col: v, Val: 1})
			}
			if v, ok := m.arcVar[[2]int{j, k}]; ok {
				balance = append(balance, Nonzero{Col: v, Val: -1})
				inflow = append(inflow, Nonzero{Col: v, Val: -1})
			}
		}
		// outflow - inflow - s_k + e_k = 0
		balance = append(balance,
			Nonzero{Col: m.startVar[k], Val: -1},
			Nonzero{Col: m.endVar[k], Val: 1},
		)
		addRow(Row{Name: fmt.Sprintf("balance_%d", k), Lower: 0, Upper: 0, Coeffs: balance})

		// Each city is entered and left at most once.
		if len(outflow) > 0 {
			addRow(Row{Name: fmt.Sprintf("outdeg_%d", k), Lower: -inf, Upper: 1, Coeffs: outflow})
		}
		if len(inflow) > 0 {
			in := make([]Nonzero, len(inflow))
			for i, nz := range inflow {
				in[i] = Nonzero{Col: nz.Col, Val: -nz.Val}
			}
			addRow(Row{Name: fmt.Sprintf("indeg_%d", k), Lower: -inf, Upper: 1, Coeffs: in})
		}

		// Mandatory visitation: the trip must enter (or start at) and
		// leave (or end at) every mandatory city.
		if g.isMandatory[k] {
			enter := make([]Nonzero, 0, len(inflow)+1)
			for _, nz := range inflow {
				enter = append(enter, Nonzero{Col: nz.Col, Val: -nz.Val})
			}
			enter = append(enter, Nonzero{Col: m.startVar[k], Val: 1})
			addRow(Row{Name: fmt.Sprintf("visit_in_%d", k), Lower: 1, Upper: inf, Coeffs: enter})

			leave := make([]Nonzero, 0, len(outflow)+1)
			leave = append(leave, outflow...)
			leave = append(leave, Nonzero{Col: m.endVar[k], Val: 1})
			addRow(Row{Name: fmt.Sprintf("visit_out_%d", k), Lower: 1, Upper: inf, Coeffs: leave})
		}
	}

	// MTZ subtour elimination: u_i - u_j + n*x_ij <= n - 1, relaxed by
	// n*e_j for arcs entering the designated end so a round trip may close
	// its cycle.
	for _, a := range g.Arcs {
		v := m.arcVar[[2]int{a.From, a.To}]
		addRow(Row{
			Name:  fmt.Sprintf("mtz_%d_%d", a.From, a.To),
			Lower: -inf,
			Upper: float64(n - 1),
			Coeffs: []Nonzero{
				{Col: m.orderVar[a.From], Val: 1},
				{Col: m.orderVar[a.To], Val: -1},
				{Col: v, Val: float64(n)},
				{Col: m.endVar[a.To], Val: -float64(n)},
			},
		})
	}

	// Round trip: start and end coincide at every city.
	if req.RoundTrip {
		for i := 0; i < n; i++ {
			addRow(Row{
				Name:  fmt.Sprintf("closed_%d", i),
				Lower: 0,
				Upper: 0,
				Coeffs: []Nonzero{
					{Col: m.startVar[i], Val: 1},
					{Col: m.endVar[i], Val: -1},
				},
			})
		}
	}

	return m
}
