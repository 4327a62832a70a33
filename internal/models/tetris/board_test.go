package tetris

import "testing"

func TestClearLinesPreservesDimensions(t *testing.T) {
	b := NewBoard()
	for x := 0; x < BoardWidth; x++ {
		b[BoardHeight-1][x] = BlockI
	}
	b[5][3] = BlockT

	cleared, n := b.ClearLines()
	if n != 1 {
		t.Fatalf("expected 1 cleared line, got %d", n)
	}
	if len(cleared) != BoardHeight || len(cleared[0]) != BoardWidth {
		t.Fatalf("board dimensions changed after clear")
	}
	for y := BoardHeight - n; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			if cleared[y][x] != BlockEmpty {
				t.Fatalf("row %d should hold the empty row shifted down from above after clear, got %v at x=%d", y, cleared[y][x], x)
			}
		}
	}
}

func TestScoreTable(t *testing.T) {
	cases := []struct {
		lines, level, want int
	}{
		{0, 0, 0},
		{1, 0, 100},
		{2, 0, 300},
		{3, 0, 500},
		{4, 0, 800},
		{1, 1, 200},
		{4, 2, 2400},
	}
	for _, c := range cases {
		if got := Score(c.lines, c.level); got != c.want {
			t.Errorf("Score(%d,%d) = %d, want %d", c.lines, c.level, got, c.want)
		}
	}
}

func TestHardDropBonus(t *testing.T) {
	if got := HardDropBonus(0, 5); got != 10 {
		t.Errorf("HardDropBonus(0,5) = %d, want 10", got)
	}
	if got := HardDropBonus(3, 0); got != 0 {
		t.Errorf("HardDropBonus(3,0) = %d, want 0", got)
	}
}

func TestLevel(t *testing.T) {
	cases := map[int]int{0: 0, 9: 0, 10: 1, 25: 2, 100: 10}
	for lines, want := range cases {
		if got := Level(lines); got != want {
			t.Errorf("Level(%d) = %d, want %d", lines, got, want)
		}
	}
}

func TestDropIntervalBounds(t *testing.T) {
	if got := DropInterval(0); got != 1000 {
		t.Errorf("DropInterval(0) = %d, want 1000", got)
	}
	if got := DropInterval(-5); got != 1000 {
		t.Errorf("DropInterval(-5) = %d, want 1000", got)
	}
	if got := DropInterval(29); got != 50 {
		t.Errorf("DropInterval(29) = %d, want 50", got)
	}
	if got := DropInterval(50); got != 50 {
		t.Errorf("DropInterval(50) = %d, want 50", got)
	}
}

func TestDropIntervalMonotoneNonIncreasing(t *testing.T) {
	prev := DropInterval(0)
	for level := 1; level <= 29; level++ {
		cur := DropInterval(level)
		if cur > prev {
			t.Fatalf("dropInterval not monotone: level %d -> %d came after %d", level, cur, prev)
		}
		prev = cur
	}
}

func TestGhostIdempotent(t *testing.T) {
	b := NewBoard()
	p := NewPiece(TypeT)
	g1 := b.Ghost(p)
	g2 := b.Ghost(g1)
	if *g1 != *g2 {
		t.Fatalf("ghost(ghost(p)) != ghost(p): %+v vs %+v", g1, g2)
	}
}

func TestHardDropDistanceMatchesGhost(t *testing.T) {
	b := NewBoard()
	p := NewPiece(TypeI)
	ghost := b.Ghost(p)
	dropped, distance := b.HardDrop(p)
	if dropped.Y != ghost.Y {
		t.Fatalf("hardDrop landed at y=%d, ghost says y=%d", dropped.Y, ghost.Y)
	}
	if distance != ghost.Y-p.Y {
		t.Fatalf("hardDrop distance %d does not match ghost delta %d", distance, ghost.Y-p.Y)
	}
}

func TestIsGameOverEnumeratesAllSevenSpawns(t *testing.T) {
	b := NewBoard()
	if b.IsGameOver() {
		t.Fatalf("empty board must not be game over")
	}

	// Fill every cell so none of the seven spawn positions fits: it must be
	// game over.
	full := NewBoard()
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			full[y][x] = BlockI
		}
	}
	if !full.IsGameOver() {
		t.Fatalf("completely full board must be game over")
	}
}

func TestIsGameOverIgnoresRowZeroHeuristic(t *testing.T) {
	b := NewBoard()
	// A single filled cell in row 0 that does not actually block any spawn
	// position must NOT be treated as game over (the rejected heuristic
	// would say otherwise).
	b[0][9] = BlockI
	if b.IsGameOver() {
		t.Fatalf("row-0 heuristic must not be used: a stray filled cell should not force game over")
	}
}

func TestRotateFourTimesRoundTrips(t *testing.T) {
	b := NewBoard()
	p := NewPiece(TypeT)
	start := *p
	for i := 0; i < 4; i++ {
		kicked, err := b.RotateWithWallKick(p)
		if err != nil {
			t.Fatalf("rotation %d failed: %v", i, err)
		}
		p = kicked
	}
	if *p != start {
		t.Fatalf("four rotations on an empty board should return to the start: got %+v, want %+v", p, start)
	}
}

func TestRotateWithWallKickBlockedReturnsError(t *testing.T) {
	b := NewBoard()
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			b[y][x] = BlockI
		}
	}
	p := NewPiece(TypeT)
	if _, err := b.RotateWithWallKick(p); err != ErrRotationBlocked {
		t.Fatalf("expected ErrRotationBlocked on a fully blocked board, got %v", err)
	}
}

func TestOPieceNeverRotates(t *testing.T) {
	p := NewPiece(TypeO)
	before := p.Blocks()
	p.Rotate()
	after := p.Blocks()
	if before[0] != after[0] {
		t.Fatalf("O piece shape changed after Rotate()")
	}
}
