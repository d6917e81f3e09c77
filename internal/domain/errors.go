package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrMissingClientConfig = errors.New("falta configurar la información del cliente")
	ErrMissingCertificate  = errors.New("falta el certificado digital del cliente")
	ErrNoFolioAssignment   = errors.New("no hay asignación de folios para el tipo de documento")
	ErrFolioRangeExceeded  = errors.New("rango de folios excedido")
	ErrInvalidCertificate  = errors.New("certificado digital inválido")
	ErrSigningTargetNotFound = errors.New("no se encontró el elemento a firmar")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrSiiAuthFailed       = errors.New("falló la autenticación contra el SII")
	ErrSiiUploadRejected   = errors.New("el SII rechazó la recepción del envío")
)
