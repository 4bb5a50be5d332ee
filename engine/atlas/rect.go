package atlas

// rect is an axis-aligned pixel rectangle within an atlas.
type rect struct {
	X, Y, W, H int
}

func (r rect) area() int { return r.W * r.H }

func (r rect) contains(o rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

func (r rect) intersects(o rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// maxRectsPacker implements the MaxRects algorithm with a best-area-fit
// heuristic and no rotation, per §4.3 step 6. It tracks the set of maximal
// free rectangles remaining in a fixed-size bin.
type maxRectsPacker struct {
	width, height int
	free          []rect
}

func newMaxRectsPacker(width, height int) *maxRectsPacker {
	return &maxRectsPacker{
		width:  width,
		height: height,
		free:   []rect{{X: 0, Y: 0, W: width, H: height}},
	}
}

// insert finds the best-area-fit free rectangle for a w x h block, places it
// at that rectangle's origin, and returns its placement. ok is false if no
// free rectangle is large enough.
func (p *maxRectsPacker) insert(w, h int) (placed rect, ok bool) {
	bestIdx := -1
	bestArea := -1
	for i, f := range p.free {
		if f.W >= w && f.H >= h {
			leftover := f.area() - w*h
			if bestIdx == -1 || leftover < bestArea {
				bestIdx = i
				bestArea = leftover
			}
		}
	}
	if bestIdx == -1 {
		return rect{}, false
	}

	chosen := p.free[bestIdx]
	placed = rect{X: chosen.X, Y: chosen.Y, W: w, H: h}
	p.splitFreeRects(placed)
	p.pruneFreeRects()
	return placed, true
}

// splitFreeRects removes every free rectangle that intersects placed and
// replaces each with up to four maximal sub-rectangles that avoid it.
func (p *maxRectsPacker) splitFreeRects(placed rect) {
	var next []rect
	for _, f := range p.free {
		if !f.intersects(placed) {
			next = append(next, f)
			continue
		}
		if placed.X > f.X {
			next = append(next, rect{X: f.X, Y: f.Y, W: placed.X - f.X, H: f.H})
		}
		if placed.X+placed.W < f.X+f.W {
			next = append(next, rect{X: placed.X + placed.W, Y: f.Y, W: f.X + f.W - (placed.X + placed.W), H: f.H})
		}
		if placed.Y > f.Y {
			next = append(next, rect{X: f.X, Y: f.Y, W: f.W, H: placed.Y - f.Y})
		}
		if placed.Y+placed.H < f.Y+f.H {
			next = append(next, rect{X: f.X, Y: placed.Y + placed.H, W: f.W, H: f.Y + f.H - (placed.Y + placed.H)})
		}
	}
	p.free = next
}

// pruneFreeRects discards any free rectangle wholly contained within another.
func (p *maxRectsPacker) pruneFreeRects() {
	var kept []rect
	for i, r := range p.free {
		redundant := false
		for j, o := range p.free {
			if i != j && o.contains(r) && !(r.contains(o) && i > j) {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, r)
		}
	}
	p.free = kept
}
