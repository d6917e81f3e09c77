package sii

import (
	"fmt"
	"strings"
)

// CleanRUT elimina puntos y guiones y normaliza a mayúsculas.
// "76.354.771-k" -> "76354771K".
func CleanRUT(rut string) string {
	r := strings.NewReplacer(".", "", "-", "", " ", "")
	return strings.ToUpper(r.Replace(rut))
}

// SplitRUT separa cuerpo y dígito verificador de un RUT en cualquier formato.
// "76354771-K" -> ("76354771", "K").
func SplitRUT(rut string) (number, dv string, err error) {
	clean := CleanRUT(rut)
	if len(clean) < 2 {
		return "", "", fmt.Errorf("sii: RUT demasiado corto: %q", rut)
	}
	number = clean[:len(clean)-1]
	dv = clean[len(clean)-1:]
	for _, c := range number {
		if c < '0' || c > '9' {
			return "", "", fmt.Errorf("sii: RUT con caracteres no numéricos en el cuerpo: %q", rut)
		}
	}
	return number, dv, nil
}

// ComputeDV calcula el dígito verificador (módulo 11) para el cuerpo de un RUT.
// Los pesos 2..7 se aplican cíclicamente desde el dígito menos significativo.
func ComputeDV(number string) (string, error) {
	if number == "" {
		return "", fmt.Errorf("sii: cuerpo de RUT vacío")
	}
	sum := 0
	weight := 2
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return "", fmt.Errorf("sii: cuerpo de RUT con caracter no numérico: %q", number)
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch rest := 11 - sum%11; rest {
	case 11:
		return "0", nil
	case 10:
		return "K", nil
	default:
		return fmt.Sprintf("%d", rest), nil
	}
}

// ValidateRUT valida que el dígito verificador del RUT sea correcto.
func ValidateRUT(rut string) error {
	number, dv, err := SplitRUT(rut)
	if err != nil {
		return err
	}
	expected, err := ComputeDV(number)
	if err != nil {
		return err
	}
	if dv != expected {
		return fmt.Errorf("sii: dígito verificador inválido para RUT %s: esperado %s, recibido %s", number, expected, dv)
	}
	return nil
}

// FormatRUT devuelve el RUT en el formato canónico del SII: "76354771-K".
func FormatRUT(rut string) (string, error) {
	number, dv, err := SplitRUT(rut)
	if err != nil {
		return "", err
	}
	return number + "-" + dv, nil
}
