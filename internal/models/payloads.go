package models

// These structs define the JSON payloads exchanged with the external
// response layer. Assets arrive as GCS object references; the caller
// identity is resolved by an upstream collaborator and passed through as an
// opaque user id.

// AssetRef points at one uploaded object in GCS.
type AssetRef struct {
	Bucket string `json:"bucket"`
	Object string `json:"object"`
}

// ConvertRequest asks for an ordered batch of images to become one PDF.
// The order of Images is the submission order and determines page order.
type ConvertRequest struct {
	UserID       string     `json:"userId"`
	Images       []AssetRef `json:"images"`
	OutputBucket string     `json:"outputBucket,omitempty"`
}

// ConvertResponse reports a finished conversion.
type ConvertResponse struct {
	Status         string `json:"status"`
	AttemptedCount int    `json:"attemptedCount"`
	TotalCount     int64  `json:"totalCount"`
	OutputGCSUri   string `json:"outputGcsUri"`
}

// CompressRequest asks for one document to be rewritten under a strategy.
// Strategy is one of the literal selectors "lossless compression",
// "remove images", "remove duplication".
type CompressRequest struct {
	UserID       string   `json:"userId"`
	Document     AssetRef `json:"document"`
	Strategy     string   `json:"strategy"`
	OutputBucket string   `json:"outputBucket,omitempty"`
}

// CompressResponse reports a finished compression, including the size
// delta in mebibytes.
type CompressResponse struct {
	Status           string  `json:"status"`
	AttemptedCount   int     `json:"attemptedCount"`
	TotalCount       int64   `json:"totalCount"`
	InitialSizeMB    float64 `json:"initialSizeMb"`
	FinalSizeMB      float64 `json:"finalSizeMb"`
	PercentReduction int     `json:"percentReduction"`
	OutputGCSUri     string  `json:"outputGcsUri"`
}

// ErrorResponse names the machine-checkable kind of a failure. Code is one
// of the engine error codes plus "ledger_unavailable" and "internal_error".
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
