// Package docs registra la especificación OpenAPI de la API en swag.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var template string

// SwaggerInfo metadatos de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "Inventario Kardex API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  template,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
