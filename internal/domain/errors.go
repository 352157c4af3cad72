package domain

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrRecordNotFound    = errors.New("record not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidDocument   = errors.New("invalid OCR document")
	ErrExtractionFailed  = errors.New("contract extraction failed")
	ErrInvalidExtraction = errors.New("extraction output does not match contract schema")
	ErrMissingRecordID   = errors.New("record id is empty")
	ErrStoreDisabled     = errors.New("record store is not configured")
	ErrStorageDisabled   = errors.New("object storage is not configured")
	ErrUploadFailed      = errors.New("upload to object storage failed")
)
