package optimizer

import "fmt"

// Grid is an inclusive range of candidate window lengths.
type Grid struct {
	Start int
	Stop  int
	Step  int
}

var (
	// DualGrid is used for both the fast and the slow axis.
	DualGrid = Grid{Start: 10, Stop: 360, Step: 5}
	EMAGrid  = Grid{Start: 5, Stop: 365, Step: 5}
)

// SingleGrid returns 1..365 for step 1 and 5..365 for step 5.
func SingleGrid(step int) (Grid, error) {
	switch step {
	case 1:
		return Grid{Start: 1, Stop: 365, Step: 1}, nil
	case 5:
		return Grid{Start: 5, Stop: 365, Step: 5}, nil
	default:
		return Grid{}, fmt.Errorf("single-window grid step must be 1 or 5, got %d", step)
	}
}

// Values lists the windows in ascending order.
func (g Grid) Values() []int {
	if g.Step <= 0 || g.Start <= 0 || g.Stop < g.Start {
		return nil
	}
	out := make([]int, 0, (g.Stop-g.Start)/g.Step+1)
	for w := g.Start; w <= g.Stop; w += g.Step {
		out = append(out, w)
	}
	return out
}

func (g Grid) Len() int { return len(g.Values()) }

func (g Grid) String() string { return fmt.Sprintf("%d..%d/%d", g.Start, g.Stop, g.Step) }
