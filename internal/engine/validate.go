package engine

import "fmt"

// Upload limits, matching the platform's public contract.
const (
	MaxImageBytes    = 8 << 20  // 8 MiB per image
	MaxDocumentBytes = 15 << 20 // 15 MiB per PDF
)

// AssetKind selects the validation rules applied to an uploaded asset.
type AssetKind int

const (
	KindImage AssetKind = iota
	KindDocument
)

// Asset is one uploaded file as handed over by the transport layer.
// Size is the declared length (object attributes or content length); it is
// checked before any bytes are decoded. Index is the position of the asset
// in the caller's original input list.
type Asset struct {
	Data        []byte
	ContentType string
	Size        int64
	Index       int
}

var imageContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// Validate rejects oversized or wrong-typed assets before any processing.
// It inspects the declared size when one is present and only falls back to
// measuring the buffered bytes when the transport supplied no length.
func Validate(a *Asset, kind AssetKind) error {
	if a == nil || (len(a.Data) == 0 && a.Size == 0) {
		return ErrNoFileProvided
	}

	size := a.Size
	if size == 0 {
		size = int64(len(a.Data))
	}

	switch kind {
	case KindImage:
		if _, ok := imageContentTypes[a.ContentType]; !ok {
			return fmt.Errorf("%w: %q is not a supported image type", ErrInvalidFileType, a.ContentType)
		}
		if size > MaxImageBytes {
			return fmt.Errorf("%w: image is %d bytes, limit is %d", ErrFileTooLarge, size, MaxImageBytes)
		}
	case KindDocument:
		if a.ContentType != "application/pdf" {
			return fmt.Errorf("%w: %q is not a PDF", ErrInvalidFileType, a.ContentType)
		}
		if size > MaxDocumentBytes {
			return fmt.Errorf("%w: document is %d bytes, limit is %d", ErrFileTooLarge, size, MaxDocumentBytes)
		}
	default:
		return fmt.Errorf("unknown asset kind %d", kind)
	}
	return nil
}
