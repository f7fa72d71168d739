package evo

import "errors"

var (
	ErrConfiguration           = errors.New("invalid evolution configuration")
	ErrInvalidInput            = errors.New("invalid breeding input")
	ErrConstraintUnsatisfiable = errors.New("magnitude constraint unsatisfiable")
	ErrOutOfRange              = errors.New("generation budget exhausted")
	ErrEmptyPopulation         = errors.New("generation produced no candidates")
)
