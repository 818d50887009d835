package imgconv

import (
	"fmt"
	"image"
	_ "image/jpeg" // decode support
	_ "image/png"  // decode support
	"os"

	_ "golang.org/x/image/webp" // decode support
)

// Load decodes the image file at path using the standard library's
// registered decoders plus webp.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imgconv: cannot open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imgconv: cannot decode %s: %w", path, err)
	}
	return img, nil
}
