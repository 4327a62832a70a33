package tetris

import (
	"github.com/tetris-battle/engine/internal/models/tetris"
)

// lcg定数。クライアントと同一のバッグ列を再現するため、この並びは変更しない。
const (
	lcgMul = 1103515245
	lcgAdd = 12345
	lcgMod = 1<<31 - 1 // 2^31 - 1
)

// seededRandom は与えられたシードから決定的な [0,1) の浮動小数列を生成する
// ジェネレータを返します。呼び出すたびに内部状態が進みます。
func seededRandom(seed int32) func() float64 {
	state := int64(seed)
	return func() float64 {
		state = (state*lcgMul + lcgAdd) & 0x7FFFFFFF
		return float64(state) / float64(lcgMod)
	}
}

// shuffleBag は7種のテトリミノからなる新しいバッグを、指定されたシードから
// Fisher-Yatesで生成します（右端から左へ）。同じシードからは常に同じ並びになります。
func shuffleBag(seed int32) [7]tetris.PieceType {
	bag := tetris.AllPieceTypes
	next := seededRandom(seed)

	for i := len(bag) - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		if j > i {
			j = i // 浮動小数誤差で範囲外に出ないための保険
		}
		bag[i], bag[j] = bag[j], bag[i]
	}
	return bag
}

// bagForBagNumber はgameSeedとbagNumberから決定的な1バッグ分のピース列を返します。
// 呼び出し側はバッグをまたいで同じRNGを再利用してはならず、各バッグは
// gameSeed+bagNumberから新しく播種されます。
func bagForBagNumber(gameSeed int32, bagNumber int) [7]tetris.PieceType {
	return shuffleBag(gameSeed + int32(bagNumber))
}
