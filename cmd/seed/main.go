// seed genera un script SQL con los casos del set de pruebas del SII a partir
// del archivo .txt oficial (descargado desde el sitio de certificación, viene
// en ISO-8859-1).
//
// Uso: go run ./cmd/seed [ruta/set_pruebas.txt]
// Por defecto busca set_pruebas.txt en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_basic_set.sql
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

// documentTypeByName tipo de DTE según el nombre que usa el set de pruebas.
var documentTypeByName = map[string]string{
	"FACTURA ELECTRONICA":                    "33",
	"FACTURA NO AFECTA O EXENTA ELECTRONICA": "34",
	"NOTA DE CREDITO ELECTRONICA":            "61",
	"NOTA DE DEBITO ELECTRONICA":             "56",
	"GUIA DE DESPACHO ELECTRONICA":           "52",
}

type testCase struct {
	id              string
	code            string
	docTypeCode     string
	referenceCode   string
	referenceReason string
	globalDiscount  float64
	lines           []testLine
}

type testLine struct {
	description string
	quantity    float64
	unitPrice   float64
	discountPct float64
	exempt      bool
}

func main() {
	path := "set_pruebas.txt"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer set de pruebas: %v\n", err)
		os.Exit(1)
	}
	content, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar ISO-8859-1: %v\n", err)
		os.Exit(1)
	}
	text := string(content)

	attention := regexp.MustCompile(`NUMERO DE ATENCION:\s*(\d+)`).FindStringSubmatch(text)
	if attention == nil {
		fmt.Fprintln(os.Stderr, "No se encontró el número de atención en el archivo")
		os.Exit(1)
	}

	cases := parseCases(text)
	if len(cases) == 0 {
		fmt.Fprintln(os.Stderr, "El archivo no contiene casos")
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "002_seed_basic_set.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	writeSQL(out, attention[1], cases)
	fmt.Printf("Generado %s: %d casos (atención %s)\n", outPath, len(cases), attention[1])
}

// parseCases divide el archivo por los encabezados "CASO NNNNNNN-N" seguidos
// de la línea de separación y parsea cada bloque.
func parseCases(text string) []*testCase {
	headerRe := regexp.MustCompile(`CASO\s+(\d+-\d+)\s*\n={10,}`)
	headers := headerRe.FindAllStringSubmatchIndex(text, -1)

	var cases []*testCase
	for i, h := range headers {
		code := text[h[2]:h[3]]
		start := h[1]
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		if c := parseCase(code, text[start:end]); c != nil {
			cases = append(cases, c)
		}
	}
	return cases
}

func parseCase(code, block string) *testCase {
	c := &testCase{id: uuid.NewString(), code: code}

	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "DOCUMENTO"):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "DOCUMENTO"))
			c.docTypeCode = documentTypeByName[name]
		case strings.HasPrefix(trimmed, "REFERENCIA"):
			if m := regexp.MustCompile(`CASO\s+(\d+-\d+)`).FindStringSubmatch(trimmed); m != nil {
				c.referenceCode = m[1]
			}
		case strings.HasPrefix(trimmed, "RAZON REFERENCIA"):
			c.referenceReason = strings.TrimSpace(strings.TrimPrefix(trimmed, "RAZON REFERENCIA"))
		case strings.HasPrefix(trimmed, "DESCUENTO GLOBAL"):
			if m := regexp.MustCompile(`(\d+)%`).FindStringSubmatch(trimmed); m != nil {
				c.globalDiscount, _ = strconv.ParseFloat(m[1], 64)
			}
		}
	}
	if c.docTypeCode == "" {
		return nil
	}
	c.lines = parseItems(block)
	return c
}

// parseItems extrae las líneas de detalle debajo del encabezado ITEM/CANTIDAD.
func parseItems(block string) []testLine {
	lines := strings.Split(block, "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "ITEM") && (strings.Contains(line, "CANTIDAD") || strings.Contains(line, "PRECIO")) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil
	}

	splitRe := regexp.MustCompile(`\s{2,}|\t+`)
	var items []testLine
	for _, line := range lines[headerIdx+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "DESCUENTO GLOBAL") ||
			strings.HasPrefix(trimmed, "REFERENCIA") || strings.HasPrefix(trimmed, "-") {
			break
		}
		parts := splitRe.Split(trimmed, -1)
		var clean []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				clean = append(clean, p)
			}
		}
		if len(clean) < 2 {
			continue
		}
		item := testLine{
			description: clean[0],
			quantity:    1,
			exempt:      strings.Contains(strings.ToUpper(clean[0]), "EXENTO"),
		}
		item.quantity = parseNumber(clean[1], 1)
		if len(clean) >= 3 {
			item.unitPrice = parseNumber(clean[2], 0)
		}
		if len(clean) >= 4 {
			item.discountPct = parseNumber(strings.TrimSuffix(clean[3], "%"), 0)
		}
		items = append(items, item)
	}
	return items
}

// parseNumber convierte números con separador de miles chileno ("1.234,5").
func parseNumber(s string, def float64) float64 {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func writeSQL(out *os.File, attentionNumber string, cases []*testCase) {
	projectID := uuid.NewString()
	idByCode := make(map[string]string, len(cases))
	for _, c := range cases {
		idByCode[c.code] = c.id
	}

	fmt.Fprintf(out, "-- Set básico de certificación SII (número de atención %s)\n", attentionNumber)
	out.WriteString("-- Generado desde el archivo oficial del set de pruebas\n\n")

	fmt.Fprintf(out, "INSERT INTO projects (id, name, status) VALUES ('%s', 'Set Básico %s', 'draft');\n\n",
		projectID, attentionNumber)

	for _, c := range cases {
		refID := "NULL"
		if id, ok := idByCode[c.referenceCode]; ok {
			refID = "'" + id + "'"
		}
		fmt.Fprintf(out,
			"INSERT INTO certification_cases\n"+
				"  (id, project_id, case_number, name, document_type_code, reference_case_id, reference_reason, global_discount_pct, status)\n"+
				"VALUES ('%s', '%s', '%s', '%s', '%s', %s, '%s', %.2f, 'draft');\n",
			c.id, projectID, c.code, escapeSQL("Caso "+c.code), c.docTypeCode,
			refID, escapeSQL(c.referenceReason), c.globalDiscount,
		)
		for i, l := range c.lines {
			fmt.Fprintf(out,
				"INSERT INTO case_lines (id, case_id, sequence, description, quantity, unit_price, discount_pct, exempt)\n"+
					"VALUES ('%s', '%s', %d, '%s', %g, %g, %g, %t);\n",
				uuid.NewString(), c.id, i+1, escapeSQL(l.description),
				l.quantity, l.unitPrice, l.discountPct, l.exempt,
			)
		}
		out.WriteString("\n")
	}
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
