package tetris

import "log"

// PieceType はテトリミノの種類を表します。
type PieceType int

const (
	TypeI PieceType = iota // 0: I-ミノ (シアン)
	TypeO                  // 1: O-ミノ (黄色)
	TypeT                  // 2: T-ミノ (紫)
	TypeS                  // 3: S-ミノ (緑)
	TypeZ                  // 4: Z-ミノ (赤)
	TypeJ                  // 5: J-ミノ (青)
	TypeL                  // 6: L-ミノ (オレンジ)
)

// AllPieceTypes は7-bagの基礎となる、生成順の7種類のテトリミノです。
var AllPieceTypes = [7]PieceType{TypeI, TypeO, TypeT, TypeS, TypeZ, TypeJ, TypeL}

// spawnOffsets は各テトリミノのスポーン位置 (基準点からの絶対座標) を表します。
// ほとんどのピースは x=3, y=0 でスポーンしますが、形状の基準点の取り方によって
// O-ミノだけ x=4 に調整しています。
var spawnOffsets = map[PieceType][2]int{
	TypeI: {3, 0},
	TypeO: {4, 0},
	TypeT: {3, 0},
	TypeS: {3, 0},
	TypeZ: {3, 0},
	TypeJ: {3, 0},
	TypeL: {3, 0},
}

// Piece はテトリミノの現在の状態（種類、ボード上の基準点座標、回転状態）を表します。
// Rotation は 0..3 のインデックスで、度数ではありません（0=スポーン, 1=右回り90度, ...）。
type Piece struct {
	Type     PieceType `json:"type"`
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Rotation int       `json:"rotation"`
}

// pieceShapes は各PieceTypeの各回転状態 (0..3) におけるブロックの相対座標を定義します。
// [PieceType][RotationIndex][BlockIndex][Coordinate (x or y)]
// このテーブルの並びは標準SRSのキックテーブル（kicks.go）が前提とする配置と一致します。
var pieceShapes = map[PieceType][4][4][2]int{
	TypeI: {
		{{0, 1}, {1, 1}, {2, 1}, {3, 1}}, // 0: スポーン (横)
		{{2, 0}, {2, 1}, {2, 2}, {2, 3}}, // R (縦)
		{{0, 2}, {1, 2}, {2, 2}, {3, 2}}, // 2 (横、一段下)
		{{1, 0}, {1, 1}, {1, 2}, {1, 3}}, // L (縦)
	},
	TypeO: {
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	},
	TypeT: {
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	TypeS: {
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 1}, {2, 1}, {0, 2}, {1, 2}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	TypeZ: {
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{2, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {1, 2}, {2, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {0, 2}},
	},
	TypeJ: {
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	},
	TypeL: {
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {1, 2}, {2, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	},
}

// NewPiece は指定された種類のピースを標準スポーン位置・回転0で生成します。
func NewPiece(t PieceType) *Piece {
	off := spawnOffsets[t]
	return &Piece{Type: t, X: off[0], Y: off[1], Rotation: 0}
}

// Blocks は現在の回転状態に基づく、構成ブロックの相対座標を返します。
func (p *Piece) Blocks() [][2]int {
	return p.blocksAtRotation(p.Rotation)
}

func (p *Piece) blocksAtRotation(rotation int) [][2]int {
	shapeData, ok := pieceShapes[p.Type]
	if !ok {
		log.Printf("[tetris] unknown piece type %d, falling back to I", p.Type)
		shapeData = pieceShapes[TypeI]
	}
	rot := ((rotation % 4) + 4) % 4
	blocks := shapeData[rot]
	out := make([][2]int, len(blocks))
	copy(out, blocks[:])
	return out
}

// Rotate はピースを時計回りに1段階（90度相当）回転させます。壁蹴りは行いません。
func (p *Piece) Rotate() {
	if p.Type == TypeO {
		return
	}
	p.Rotation = (p.Rotation + 1) % 4
}

// RotateCounterClockwise はピースを反時計回りに1段階回転させます。
func (p *Piece) RotateCounterClockwise() {
	if p.Type == TypeO {
		return
	}
	p.Rotation = (p.Rotation + 3) % 4
}

// Clone は現在のPieceのディープコピーを返します。
func (p *Piece) Clone() *Piece {
	newP := *p
	return &newP
}

// StringToPieceType は文字列のテトリミノタイプ（"I", "O", "T"など）をPieceTypeに変換します。
func StringToPieceType(s string) (PieceType, bool) {
	switch s {
	case "I":
		return TypeI, true
	case "O":
		return TypeO, true
	case "T":
		return TypeT, true
	case "S":
		return TypeS, true
	case "Z":
		return TypeZ, true
	case "J":
		return TypeJ, true
	case "L":
		return TypeL, true
	default:
		return TypeI, false
	}
}

// PieceTypeToString はPieceTypeを文字列表現に変換します。
func PieceTypeToString(t PieceType) string {
	switch t {
	case TypeI:
		return "I"
	case TypeO:
		return "O"
	case TypeT:
		return "T"
	case TypeS:
		return "S"
	case TypeZ:
		return "Z"
	case TypeJ:
		return "J"
	case TypeL:
		return "L"
	default:
		return "I"
	}
}
