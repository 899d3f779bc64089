package pipeline

import "stoicbot/types"

// Rotation decides which format a given post number produces. Frequencies
// are checked in fixed priority order (flash, carousel, animated) so a
// number divisible by several frequencies always resolves the same way; a
// zero frequency disables its format. Everything else is a plain reel.
type Rotation struct {
	FlashEvery    int
	CarouselEvery int
	AnimatedEvery int
}

// ChooseFormat maps a prospective post number to its format. Pure function:
// rotation decisions never touch stored state.
func (r Rotation) ChooseFormat(number int) types.Format {
	if r.FlashEvery > 0 && number%r.FlashEvery == 0 {
		return types.FormatFlash
	}
	if r.CarouselEvery > 0 && number%r.CarouselEvery == 0 {
		return types.FormatCarousel
	}
	if r.AnimatedEvery > 0 && number%r.AnimatedEvery == 0 {
		return types.FormatAnimated
	}
	return types.FormatReel
}
