package domain

import "errors"

var (
	ErrDatasetNotLoaded   = errors.New("dataset is not loaded")
	ErrMissingColumn      = errors.New("required column is missing")
	ErrInvalidValue       = errors.New("invalid cell value")
	ErrEmptySheet         = errors.New("sheet has no header row")
	ErrUnknownChart       = errors.New("unknown chart kind")
	ErrNoData             = errors.New("no data for the selected filters")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
