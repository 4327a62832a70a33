package tetris

import (
	"errors"
	"math"
)

const (
	BoardWidth  = 10 // テトリスボードの幅
	BoardHeight = 20 // テトリスボードの高さ
)

// ErrRotationBlocked はrotateWithWallKickが、自然回転もどのキックオフセットも
// 成立させられなかった場合に返されるエラーです。
var ErrRotationBlocked = errors.New("tetris: rotation blocked, no kick offset fits")

// BlockType はボード上のブロックの種類を表します。
// 各テトリミノの種類もブロックタイプとして扱います。
type BlockType int

const (
	BlockEmpty BlockType = iota // 0: 空のマス
	BlockI                      // 1: I-テトリミノ由来のブロック
	BlockO                      // 2: O-テトリミノ由来のブロック
	BlockT                      // 3: T-テトリミノ由来のブロック
	BlockS                      // 4: S-テトリミノ由来のブロック
	BlockZ                      // 5: Z-テトリミノ由来のブロック
	BlockJ                      // 6: J-テトリミノ由来のブロック
	BlockL                      // 7: L-テトリミノ由来のブロック
)

// Board はテトリスのゲームボードを表す2次元配列です。Board[y][x]でアクセスし、
// yは行(0が最上段)、xは列です。値型なので代入・コピーは配列全体の複製になります。
type Board [BoardHeight][BoardWidth]BlockType

// NewBoard は新しい空のボードを返します。
func NewBoard() Board {
	var board Board
	return board
}

// HasCollision は指定されたピースが、基準座標からの移動量(dx,dy)を加えた位置で
// 壁や既存のブロックと衝突するかどうかを判定します。yが負の領域（スポーンゾーン）
// は許可され、既存ブロックとの衝突判定の対象にもなりません。
func (b Board) HasCollision(p *Piece, dx, dy int) bool {
	for _, block := range p.Blocks() {
		x := p.X + block[0] + dx
		y := p.Y + block[1] + dy

		if x < 0 || x >= BoardWidth || y >= BoardHeight {
			return true
		}
		if y >= 0 && b[y][x] != BlockEmpty {
			return true
		}
	}
	return false
}

// IsValid はHasCollisionの否定で、指定の移動量でピースが成立するかを返します。
func (b Board) IsValid(p *Piece, dx, dy int) bool {
	return !b.HasCollision(p, dx, dy)
}

// blockTypeFor はピース種別に対応するBlockTypeを返します。
func blockTypeFor(t PieceType) BlockType {
	return BlockType(t) + 1
}

// Place はピースの可視領域（y>=0）にあるブロックを焼き付けた新しいボードを返します。
// yが負のブロック（スポーンゾーンにはみ出た部分）は破棄されます。受け手のボードは
// 変更しません。
func (b Board) Place(p *Piece) Board {
	nb := b
	bt := blockTypeFor(p.Type)
	for _, block := range p.Blocks() {
		x := p.X + block[0]
		y := p.Y + block[1]
		if x >= 0 && x < BoardWidth && y >= 0 && y < BoardHeight {
			nb[y][x] = bt
		}
	}
	return nb
}

// MergePiece はPlaceの破壊的バージョンで、ロックパイプラインの内部実装に使います。
func (b *Board) MergePiece(p *Piece) {
	*b = b.Place(p)
}

// ClearLines は揃ったラインを取り除き、残った行を下詰めした新しいボードと、
// クリアされたライン数を返します。下から上へスキャンし、残存行の相対順序を保ちます。
func (b Board) ClearLines() (Board, int) {
	newBoard := NewBoard()
	clearedLines := 0
	destY := BoardHeight - 1

	for y := BoardHeight - 1; y >= 0; y-- {
		isLineFull := true
		for x := 0; x < BoardWidth; x++ {
			if b[y][x] == BlockEmpty {
				isLineFull = false
				break
			}
		}
		if isLineFull {
			clearedLines++
			continue
		}
		for x := 0; x < BoardWidth; x++ {
			newBoard[destY][x] = b[y][x]
		}
		destY--
	}
	return newBoard, clearedLines
}

// lineClearScores はクリアしたライン数(0..4)ごとの基礎スコアです。
var lineClearScores = [5]int{0, 100, 300, 500, 800}

// Score は揃ったライン数とレベルから獲得スコアを算出します。
func Score(linesCleared, level int) int {
	if linesCleared < 0 {
		return 0
	}
	if linesCleared >= len(lineClearScores) {
		linesCleared = len(lineClearScores) - 1
	}
	return lineClearScores[linesCleared] * (level + 1)
}

// HardDropBonus はハードドロップで得られるボーナススコアです。levelは現行の
// 計算式には現れませんが、呼び出し側のシグネチャを安定させるために残します。
func HardDropBonus(level, distance int) int {
	if distance < 0 {
		return 0
	}
	return distance * 2
}

// Level は累計クリアライン数から現在のレベルを算出します。
func Level(totalLines int) int {
	if totalLines < 0 {
		return 0
	}
	return totalLines / 10
}

// DropInterval は標準テトリスの落下速度式に基づく、指定レベルでの落下間隔(ms)です。
func DropInterval(level int) int {
	if level <= 0 {
		return 1000
	}
	if level >= 29 {
		return 50
	}
	seconds := math.Pow(0.8-float64(level-1)*0.007, float64(level-1))
	ms := int(seconds * 1000)
	if ms < 50 {
		return 50
	}
	if ms > 1000 {
		return 1000
	}
	return ms
}

// Ghost はピースをハードドロップした場合の最終着地位置を、有効な最大yを
// 探索して求めたクローンとして返します。
func (b Board) Ghost(p *Piece) *Piece {
	ghost := p.Clone()
	for b.IsValid(ghost, 0, 1) {
		ghost.Y++
	}
	return ghost
}

// HardDrop はピースを落とせるところまで落とし、そのクローンと移動距離を返します。
func (b Board) HardDrop(p *Piece) (*Piece, int) {
	dropped := p.Clone()
	distance := 0
	for b.IsValid(dropped, 0, 1) {
		dropped.Y++
		distance++
	}
	return dropped, distance
}

// RotateWithWallKick はナイーブな回転を試み、衝突する場合は該当ピースの
// 回転遷移に対応するキックオフセットを順に試します。最初に成立したピースの
// クローンを返すか、どれも成立しなければErrRotationBlockedを返します。
// O-ミノは回転せず、ナイーブな回転（無変化）がそのまま成立として扱われます。
func (b Board) RotateWithWallKick(p *Piece) (*Piece, error) {
	from := p.Rotation
	candidate := p.Clone()
	candidate.Rotate()
	to := candidate.Rotation

	if p.Type == TypeO {
		if b.IsValid(candidate, 0, 0) {
			return candidate, nil
		}
		return nil, ErrRotationBlocked
	}

	for _, off := range kickOffsetsFor(p.Type, from, to) {
		if b.IsValid(candidate, off[0], off[1]) {
			kicked := candidate.Clone()
			kicked.X += off[0]
			kicked.Y += off[1]
			return kicked, nil
		}
	}
	return nil, ErrRotationBlocked
}

// IsGameOver はボード上のスポーン位置のいずれにも7種のピースが一つも
// 置けない場合にtrueを返します。「0行目に埋まったセルがある」という簡易判定は
// 採用しません。
func (b Board) IsGameOver() bool {
	for _, t := range AllPieceTypes {
		p := NewPiece(t)
		if b.IsValid(p, 0, 0) {
			return false
		}
	}
	return true
}
