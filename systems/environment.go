package systems

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/config"
)

// Category classifies a cell's environment.
type Category uint8

const (
	Neutral Category = iota
	Green
	Stress
)

// Environment effects.
const (
	GreenModifier        = 0.1  // mood gained per tick on green cells
	StressModifier       = -0.1 // mood lost per tick on stress cells
	GreenIsolationRelief = 0.1  // lowered isolation threshold on green cells
	numCategories        = 3
)

func (c Category) String() string {
	switch c {
	case Green:
		return "green"
	case Stress:
		return "stress"
	default:
		return "neutral"
	}
}

// Modifier returns the per-tick mood change for agents on this category.
func (c Category) Modifier() float64 {
	switch c {
	case Green:
		return GreenModifier
	case Stress:
		return StressModifier
	default:
		return 0
	}
}

// Layout selects how categories are distributed over the grid.
type Layout uint8

const (
	LayoutShuffle   Layout = iota // uniform random placement
	LayoutClustered               // ranked simplex noise, patchy regions
)

// ParseLayout converts a config string to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case config.LayoutShuffle:
		return LayoutShuffle, nil
	case config.LayoutClustered:
		return LayoutClustered, nil
	}
	return 0, &config.ValidationError{Field: "environment.layout", Reason: fmt.Sprintf("unknown layout %q", s)}
}

// FieldSpec describes how to build an EnvironmentField.
type FieldSpec struct {
	Width, Height int
	GreenRatio    float64
	StressRatio   float64
	Layout        Layout
	NoiseScale    float64
}

// EnvironmentField is the static per-cell category map. Immutable after construction.
type EnvironmentField struct {
	width  int
	height int
	cells  []Category
	counts [numCategories]int
}

// NewEnvironmentField builds the field. Exactly floor(T*green) cells are green and
// floor(T*stress) are stress, where T is the cell count; the rest are neutral.
func NewEnvironmentField(spec FieldSpec, rng *rand.Rand) (*EnvironmentField, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, &config.ValidationError{Field: "grid", Reason: fmt.Sprintf("dimensions must be positive, got %dx%d", spec.Width, spec.Height)}
	}
	if spec.GreenRatio < 0 || spec.StressRatio < 0 || spec.GreenRatio+spec.StressRatio > 1+1e-9 {
		return nil, &config.ValidationError{
			Field:  "environment",
			Reason: fmt.Sprintf("green_ratio %v + stress_ratio %v must not exceed 1", spec.GreenRatio, spec.StressRatio),
		}
	}

	total := spec.Width * spec.Height
	greenCount := int(math.Floor(float64(total) * spec.GreenRatio))
	stressCount := int(math.Floor(float64(total) * spec.StressRatio))
	if greenCount+stressCount > total {
		stressCount = total - greenCount
	}

	var order []int
	switch spec.Layout {
	case LayoutClustered:
		order = noiseOrder(spec, rng.Int63())
	default:
		order = make([]int, total)
		for i := range order {
			order[i] = i
		}
		rng.Shuffle(total, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	f := &EnvironmentField{
		width:  spec.Width,
		height: spec.Height,
		cells:  make([]Category, total),
	}
	// Shuffled layouts take stress right after green; clustered ones take the lowest ranks.
	stressStart := greenCount
	if spec.Layout == LayoutClustered {
		stressStart = total - stressCount
	}
	for rank, idx := range order {
		switch {
		case rank < greenCount:
			f.cells[idx] = Green
		case rank >= stressStart && rank < stressStart+stressCount:
			f.cells[idx] = Stress
		default:
			f.cells[idx] = Neutral
		}
		f.counts[f.cells[idx]]++
	}
	return f, nil
}

// noiseOrder ranks cells by simplex noise, highest first. Green takes the peaks
// and stress the troughs, so both form contiguous patches.
func noiseOrder(spec FieldSpec, seed int64) []int {
	noise := opensimplex.NewNormalized(seed)
	total := spec.Width * spec.Height
	values := make([]float64, total)
	order := make([]int, total)
	for i := range order {
		x, y := i%spec.Width, i/spec.Width
		values[i] = noise.Eval2(float64(x)*spec.NoiseScale, float64(y)*spec.NoiseScale)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	return order
}

// Width returns the number of columns.
func (f *EnvironmentField) Width() int { return f.width }

// Height returns the number of rows.
func (f *EnvironmentField) Height() int { return f.height }

// CategoryAt returns the category of p. p must lie on the field.
func (f *EnvironmentField) CategoryAt(p components.Position) Category {
	return f.cells[p.Y*f.width+p.X]
}

// Count returns how many cells have category c.
func (f *EnvironmentField) Count(c Category) int {
	if int(c) >= numCategories {
		return 0
	}
	return f.counts[c]
}
