package engine

import "errors"

// Sentinel errors for everything the engine can reject. Callers match them
// with errors.Is; the service layer maps them to response codes via Kind.
var (
	ErrInvalidFileType        = errors.New("invalid file type")
	ErrFileTooLarge           = errors.New("file too large")
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	ErrNoFileProvided         = errors.New("no file provided")
	ErrUnsupportedStrategy    = errors.New("unsupported compression strategy")
	ErrDecodeFailure          = errors.New("decode failure")
)

// Kind returns a stable machine-checkable code for an engine error.
// Unknown errors report as internal_error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFileType):
		return "invalid_file_type"
	case errors.Is(err, ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, ErrInvalidImageDimensions):
		return "invalid_image_dimensions"
	case errors.Is(err, ErrNoFileProvided):
		return "no_file_provided"
	case errors.Is(err, ErrUnsupportedStrategy):
		return "unsupported_strategy"
	case errors.Is(err, ErrDecodeFailure):
		return "decode_failure"
	default:
		return "internal_error"
	}
}
