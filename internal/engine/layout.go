package engine

import "fmt"

// US Letter page dimensions in PDF points.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

// Layout computes the placement of an image on a page, preserving aspect
// ratio and never exceeding either page dimension. The placement anchors at
// the page origin. Whichever of the image's relative proportions exceeds the
// page's decides the binding axis:
//
//	imageRatio > pageRatio  -> width-bound, height follows
//	otherwise               -> height-bound, width follows
func Layout(imageWidth, imageHeight, pageWidth, pageHeight float64) (float64, float64, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return 0, 0, fmt.Errorf("%w: %gx%g", ErrInvalidImageDimensions, imageWidth, imageHeight)
	}
	if pageWidth <= 0 || pageHeight <= 0 {
		return 0, 0, fmt.Errorf("%w: page %gx%g", ErrInvalidImageDimensions, pageWidth, pageHeight)
	}

	imageRatio := imageWidth / imageHeight
	pageRatio := pageWidth / pageHeight

	if imageRatio > pageRatio {
		placedWidth := pageWidth
		return placedWidth, placedWidth / imageRatio, nil
	}
	placedHeight := pageHeight
	return placedHeight * imageRatio, placedHeight, nil
}
