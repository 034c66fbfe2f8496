package exception

import "errors"

// Store errors
var (
	ErrStoreNotFound        = errors.New("store: snapshot not found")
	ErrStoreChecksum        = errors.New("store: checksum mismatch")
	ErrStoreCorruptedRecord = errors.New("store: corrupted record")
	ErrStoreClosed          = errors.New("store: closed")
)
