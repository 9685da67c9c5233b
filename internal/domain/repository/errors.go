package repository

import "errors"

// Errores comunes de repositorios.
var (
	ErrNotFound = errors.New("repository: not found")
	ErrConflict = errors.New("repository: conflict")
)
