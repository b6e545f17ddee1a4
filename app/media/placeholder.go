package media

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

const placeholderSize = 640

// writePlaceholder renders the synthetic substitute asset: a flat gray
// tile crossed by two dark diagonals, visually distinct from any real
// photo. The Result status is what marks it as a placeholder; the tile
// just has to be obviously not the original.
func writePlaceholder(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))

	background := color.RGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF}
	stroke := color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xFF}

	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			img.SetRGBA(x, y, background)
		}
	}
	for i := 0; i < placeholderSize; i++ {
		for w := -2; w <= 2; w++ {
			setIfInside(img, i+w, i, stroke)
			setIfInside(img, i+w, placeholderSize-1-i, stroke)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("media: create placeholder: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("media: encode placeholder: %w", err)
	}
	return nil
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if x >= 0 && x < placeholderSize && y >= 0 && y < placeholderSize {
		img.SetRGBA(x, y, c)
	}
}
