package book

import "meridian/internal/common"

// priceLevel is one side's resting state at a single price tick: the
// aggregate resting quantity and the FIFO sequence of resident order ids.
// A level exists in the book's maps iff aggQty > 0 and ids is non-empty.
type priceLevel struct {
	tick   common.PriceTick
	aggQty uint32
	ids    []uint32
}

// removeID deletes id from the level's FIFO sequence, preserving the
// relative order of the remaining ids.
func (lvl *priceLevel) removeID(id uint32) {
	for i, existing := range lvl.ids {
		if existing == id {
			lvl.ids = append(lvl.ids[:i], lvl.ids[i+1:]...)
			return
		}
	}
}
