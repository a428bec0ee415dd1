// Package storage reads and writes the files the till exchanges with the
// outside world: CSV catalogues, the JSON seat map and HTML receipts.
package storage

import "errors"

var (
	ErrLoad  = errors.New("storage: load failed")
	ErrStore = errors.New("storage: store failed")
)
