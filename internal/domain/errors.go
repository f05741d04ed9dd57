package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	// ErrInsufficientStock es un conflicto: el caller decide reintentar con override o abortar.
	ErrInsufficientStock = fmt.Errorf("%w: stock insuficiente", ErrConflict)
	// ErrBusy conflicto transitorio (fila bloqueada por otra operación); reintentar la misma operación puede funcionar.
	ErrBusy = fmt.Errorf("%w: recurso ocupado", ErrConflict)
	// ErrConsistency indica saldo distinto a la suma del historial. Nunca debería ocurrir.
	ErrConsistency = errors.New("inconsistencia entre saldo e historial de movimientos")
)

// ErrValidation es el nombre usado por el ledger para ErrInvalidInput.
var ErrValidation = ErrInvalidInput

// Kind clasifica un error para quien consume el subsistema.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindNotFound   Kind = "NOT_FOUND"
	KindInternal   Kind = "INTERNAL"
)

// KindOf devuelve la categoría del error. Todo lo que no es de dominio es INTERNAL.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Invalid envuelve ErrInvalidInput con un detalle legible.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Conflict envuelve ErrConflict con un detalle legible.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
