package ocr

import (
	"errors"

	"smartreceipts/pkg/store"
)

var (
	// ErrImageLoadFailed is returned when the upload cannot be decoded.
	ErrImageLoadFailed = errors.New("image load failed")
	// ErrTextRecognitionFailed wraps recognizer failures.
	ErrTextRecognitionFailed = errors.New("text recognition failed")
	// ErrNoTextFound is returned when recognition succeeds but yields only whitespace.
	ErrNoTextFound = errors.New("no text found")
	// ErrEmptyText is returned by ParseText for blank input.
	ErrEmptyText = errors.New("empty text")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrImageLoadFailed, "Failed to load image"},
	{ErrTextRecognitionFailed, "Failed to recognize text"},
	{ErrNoTextFound, "No text found in image"},
	{ErrEmptyText, "No text to parse"},
	{store.ErrNotFound, "Receipt not found"},
	{store.ErrSaveFailed, "Failed to save receipt"},
	{store.ErrLoadFailed, "Failed to load receipts"},
	{store.ErrDeleteFailed, "Failed to delete receipt"},
}

// UserMessage returns a short sentence suitable for showing to the person
// who submitted the scan. Errors outside the scan and store taxonomy map to
// "Unknown error".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Unknown error"
}
