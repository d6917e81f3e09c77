// Código de barras PDF417 del timbre electrónico.

package sii

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode/pdf417"
)

const (
	// barcodeSecurityLevel nivel de corrección de errores exigido para el
	// timbre impreso.
	barcodeSecurityLevel = 5
	// barcodePadding margen blanco alrededor del símbolo, en píxeles.
	barcodePadding = 15
	// barcodeScale factor de ampliación de cada módulo.
	barcodeScale = 2
)

// GenerateBarcode codifica el TED (sin TmstFirma) como PDF417 y lo rasteriza
// a PNG con margen blanco.
func GenerateBarcode(tedXML string) ([]byte, error) {
	payload := StripTmstFirma(tedXML)
	if payload == "" {
		return nil, fmt.Errorf("barcode: TED vacío")
	}

	code, err := pdf417.Encode(payload, barcodeSecurityLevel)
	if err != nil {
		return nil, fmt.Errorf("barcode: codificar PDF417: %w", err)
	}

	bounds := code.Bounds()
	w := bounds.Dx()*barcodeScale + 2*barcodePadding
	h := bounds.Dy()*barcodeScale + 2*barcodePadding

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := code.At(x, y)
			for dy := 0; dy < barcodeScale; dy++ {
				for dx := 0; dx < barcodeScale; dx++ {
					img.Set(
						barcodePadding+(x-bounds.Min.X)*barcodeScale+dx,
						barcodePadding+(y-bounds.Min.Y)*barcodeScale+dy,
						c,
					)
				}
			}
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("barcode: codificar PNG: %w", err)
	}
	return out.Bytes(), nil
}
