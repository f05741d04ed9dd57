package inventory

import (
	"fmt"
	"strings"
)

// KeyVersion prefijo de versión de las claves derivadas. Cambiar el formato exige subir la versión.
const KeyVersion = "v1"

// MaxIdempotencyKeyLength longitud máxima aceptada (columna VARCHAR(200)).
const MaxIdempotencyKeyLength = 200

// KeyVerb distingue el sitio que deriva la clave para evitar colisiones entre consumo y reverso.
type KeyVerb string

const (
	VerbConsume KeyVerb = "consume"
	VerbRevert  KeyVerb = "revert"
)

// SaleLineKey clave de un movimiento directo de una línea de venta:
//
//	v1:{verbo}:{venta}:{línea}
func SaleLineKey(verb KeyVerb, saleID string, lineIndex int) string {
	return fmt.Sprintf("%s:%s:%s:%d", KeyVersion, verb, escapeKeyPart(saleID), lineIndex)
}

// ComponentKey clave del movimiento de un componente de combo:
//
//	v1:{verbo}:{venta}:{línea}:{componente}
func ComponentKey(verb KeyVerb, saleID string, lineIndex int, componentID string) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", KeyVersion, verb, escapeKeyPart(saleID), lineIndex, escapeKeyPart(componentID))
}

// escapeKeyPart evita que un ":" dentro de un id desplace los campos de la clave.
func escapeKeyPart(s string) string {
	return strings.ReplaceAll(s, ":", "%3A")
}
