package game

// Screen dimensions
const (
	ScreenWidth  = 1280
	ScreenHeight = 800
)

// Layout: controls on the left, grid in the middle, inspector and plot on the right.
const (
	controlsWidth = 220
	sideWidth     = 280
	margin        = 10
	hudHeight     = 95
	footerHeight  = 30
	minCellSize   = 4
	plotHeight    = 160
)

// Layout is the pixel placement of the viewer panels for one grid size.
type Layout struct {
	CellSize         int32
	GridX, GridY     int32
	GridW, GridH     int32
	SideX            int32
	ScreenW, ScreenH int32
}

// ComputeLayout fits a w x h grid between the side panels. preferred is the
// configured cell size; it shrinks until the grid fits the screen.
func ComputeLayout(screenW, screenH int32, w, h int, preferred int) Layout {
	availW := screenW - controlsWidth - sideWidth - margin*4
	availH := screenH - hudHeight - footerHeight - margin

	cell := int32(preferred)
	if w > 0 {
		if fit := availW / int32(w); fit < cell {
			cell = fit
		}
	}
	if h > 0 {
		if fit := availH / int32(h); fit < cell {
			cell = fit
		}
	}
	if cell < minCellSize {
		cell = minCellSize
	}

	l := Layout{
		CellSize: cell,
		GridX:    controlsWidth + margin*2,
		GridY:    hudHeight,
		GridW:    cell * int32(w),
		GridH:    cell * int32(h),
		ScreenW:  screenW,
		ScreenH:  screenH,
	}
	l.SideX = l.GridX + l.GridW + margin
	if minSide := screenW - sideWidth - margin; l.SideX < minSide {
		l.SideX = minSide
	}
	return l
}
