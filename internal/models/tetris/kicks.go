package tetris

// kickOffsets は回転遷移 (from→to) ごとに試す (dx,dy) の優先順位付きリストです。
// 座標系はボードと同じくyが下方向に正であるため、各オフセットはギルドライン
// (SRS) のyが上方向に正の資料から符号を反転させてあります。
type kickTransition struct {
	from, to int
}

// jlstzKicks はJ, L, S, T, Zミノ共通の壁蹴りテーブルです。O-ミノはそもそも
// 回転しないため対象外、I-ミノは専用のiKicksを使います。
var jlstzKicks = map[kickTransition][5][2]int{
	{0, 1}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{1, 0}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{1, 2}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{2, 1}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{2, 3}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{3, 2}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{3, 0}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{0, 3}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
}

// iKicks はI-ミノ専用の壁蹴りテーブルです。4x4バウンディングボックスの
// 非対称さゆえに他のピースとはオフセットが異なります。
var iKicks = map[kickTransition][5][2]int{
	{0, 1}: {{0, 0}, {-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{1, 0}: {{0, 0}, {2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{1, 2}: {{0, 0}, {-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
	{2, 1}: {{0, 0}, {1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{2, 3}: {{0, 0}, {2, 0}, {-1, 0}, {2, -1}, {-1, 2}},
	{3, 2}: {{0, 0}, {-2, 0}, {1, 0}, {-2, 1}, {1, -2}},
	{3, 0}: {{0, 0}, {1, 0}, {-2, 0}, {1, 2}, {-2, -1}},
	{0, 3}: {{0, 0}, {-1, 0}, {2, 0}, {-1, -2}, {2, 1}},
}

// kickOffsetsFor は指定したピース種別・回転遷移について試す順のオフセットを返します。
// 既知の遷移でなければ (0,0) のみのフォールバックを返します。
func kickOffsetsFor(t PieceType, from, to int) [][2]int {
	table := jlstzKicks
	if t == TypeI {
		table = iKicks
	}
	offsets, ok := table[kickTransition{from, to}]
	if !ok {
		return [][2]int{{0, 0}}
	}
	out := make([][2]int, len(offsets))
	copy(out, offsets[:])
	return out
}
