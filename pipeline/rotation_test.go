package pipeline

import (
	"testing"

	"stoicbot/types"
)

func TestChooseFormatRotation(t *testing.T) {
	r := Rotation{FlashEvery: 6, CarouselEvery: 3, AnimatedEvery: 5}

	cases := []struct {
		number int
		want   types.Format
	}{
		{1, types.FormatReel},
		{2, types.FormatReel},
		{3, types.FormatCarousel},
		{4, types.FormatReel},
		{5, types.FormatAnimated},
		{6, types.FormatFlash}, // divisible by 6 and 3: flash wins by priority
		{9, types.FormatCarousel},
		{10, types.FormatAnimated},
		{12, types.FormatFlash},
		{15, types.FormatCarousel}, // divisible by 3 and 5: carousel outranks animated
		{30, types.FormatFlash},
	}

	for _, c := range cases {
		if got := r.ChooseFormat(c.number); got != c.want {
			t.Errorf("ChooseFormat(%d) = %s; want %s", c.number, got, c.want)
		}
	}
}

func TestChooseFormatIsDeterministic(t *testing.T) {
	r := Rotation{FlashEvery: 6, CarouselEvery: 3, AnimatedEvery: 5}
	for n := 1; n <= 100; n++ {
		first := r.ChooseFormat(n)
		for i := 0; i < 5; i++ {
			if got := r.ChooseFormat(n); got != first {
				t.Fatalf("ChooseFormat(%d) changed between calls: %s then %s", n, first, got)
			}
		}
	}
}

func TestChooseFormatDisabledFrequencies(t *testing.T) {
	r := Rotation{FlashEvery: 0, CarouselEvery: 0, AnimatedEvery: 0}
	for n := 1; n <= 30; n++ {
		if got := r.ChooseFormat(n); got != types.FormatReel {
			t.Fatalf("ChooseFormat(%d) = %s; want reel when all formats disabled", n, got)
		}
	}

	r = Rotation{CarouselEvery: 3}
	if got := r.ChooseFormat(6); got != types.FormatCarousel {
		t.Fatalf("ChooseFormat(6) = %s; want carousel when flash is disabled", got)
	}
}
