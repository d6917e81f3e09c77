// Validación contra los esquemas publicados por el SII. Sin bindings de
// libxml2 la validación es estructural: raíz y elementos obligatorios según
// la forma del documento. La ausencia del archivo de esquema es advertencia,
// no error, para poder certificar sin los XSD instalados.

package sii

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// Archivos de esquema publicados por el SII, por forma de documento.
var schemaFiles = map[pkgsii.DocumentShape]string{
	pkgsii.ShapeDTE:      "DTE_v10.xsd",
	pkgsii.ShapeEnvelope: "EnvioDTE_v10.xsd",
	pkgsii.ShapeBook:     "LibroCV_v10.xsd",
}

// requiredPaths elementos mínimos que exige cada forma. El DTE se valida
// antes de firmar, por lo que su forma no exige Signature; sobres y libros
// se validan ya firmados.
var requiredPaths = map[pkgsii.DocumentShape][]string{
	pkgsii.ShapeDTE:      {"//DTE", "//Documento", "//Documento/Encabezado", "//Documento/TED"},
	pkgsii.ShapeEnvelope: {"//EnvioDTE", "//SetDTE", "//SetDTE/Caratula", "//SetDTE/DTE", "//Signature"},
	pkgsii.ShapeBook:     {"//LibroCompraVenta", "//EnvioLibro", "//EnvioLibro/Caratula", "//EnvioLibro/ResumenPeriodo", "//Signature"},
}

// SchemaResult resultado de la validación de esquema.
type SchemaResult struct {
	Errors   []string
	Warnings []string
}

// OK indica si el documento pasó la validación (las advertencias no bloquean).
func (r *SchemaResult) OK() bool {
	return len(r.Errors) == 0
}

// SchemaValidator valida documentos contra los esquemas del SII buscando los
// XSD en una lista ordenada de directorios.
type SchemaValidator struct {
	dirs []string
	log  *logger.Logger
}

// NewSchemaValidator crea el validador con los directorios de búsqueda.
func NewSchemaValidator(dirs []string, log *logger.Logger) *SchemaValidator {
	if log == nil {
		log = logger.Nop()
	}
	return &SchemaValidator{dirs: dirs, log: log}
}

// Validate valida el XML contra el esquema de su forma.
func (v *SchemaValidator) Validate(xmlBytes []byte, shape pkgsii.DocumentShape) (*SchemaResult, error) {
	schemaFile, ok := schemaFiles[shape]
	if !ok {
		return nil, fmt.Errorf("xsd: la forma de documento %d no tiene esquema asociado", shape)
	}

	result := &SchemaResult{}
	if path := v.locateSchema(schemaFile); path == "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("esquema %s no encontrado en los directorios configurados; validación de esquema omitida", schemaFile))
		v.log.Warn().Str("esquema", schemaFile).Msg("esquema XSD no encontrado, se omite la validación")
	}

	doc := newDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("el documento no es XML bien formado: %v", err))
		return result, nil
	}
	root := doc.Root()
	if root == nil {
		result.Errors = append(result.Errors, "el documento no tiene elemento raíz")
		return result, nil
	}

	for _, path := range requiredPaths[shape] {
		if doc.FindElement(path) == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("falta el elemento obligatorio %s", path))
		}
	}

	return result, nil
}

// locateSchema devuelve la primera ruta existente del esquema, o vacío.
func (v *SchemaValidator) locateSchema(name string) string {
	for _, dir := range v.dirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
