// certinfo inspecciona un certificado digital .p12/.pfx y muestra los datos
// relevantes para la certificación: RUT del titular, emisor y vigencia.
//
// Uso: go run ./cmd/certinfo <ruta/certificado.p12> [contraseña]
// Si no se pasa la contraseña se usa la variable SII_CERT_PASSWORD.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii/signer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Uso: certinfo <certificado.p12> [contraseña]")
		os.Exit(1)
	}
	path := os.Args[1]
	password := os.Getenv("SII_CERT_PASSWORD")
	if len(os.Args) > 2 {
		password = os.Args[2]
	}

	cert, err := signer.LoadCertificateFromFile(path, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cargando certificado: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Archivo:        %s\n", path)
	fmt.Printf("Titular:        %s\n", cert.Leaf.Subject.CommonName)
	fmt.Printf("RUT:            %s\n", cert.RUT)
	fmt.Printf("Emisor:         %s\n", cert.Leaf.Issuer.CommonName)
	fmt.Printf("Vigencia:       %s a %s\n",
		cert.NotBefore.Format("02-01-2006"), cert.NotAfter.Format("02-01-2006"))
	fmt.Printf("Llave RSA:      %d bits\n", cert.PrivateKey.N.BitLen())

	switch now := time.Now(); {
	case now.Before(cert.NotBefore):
		fmt.Println("Estado:         AÚN NO VIGENTE")
	case now.After(cert.NotAfter):
		fmt.Println("Estado:         EXPIRADO")
	default:
		fmt.Printf("Estado:         vigente (%d días restantes)\n",
			int(time.Until(cert.NotAfter).Hours()/24))
	}

	if cert.RUT == "" {
		fmt.Println()
		fmt.Println("ADVERTENCIA: el certificado no trae RUT en el serialNumber del")
		fmt.Println("subject; el SII lo rechazará como certificado de firma tributaria.")
		os.Exit(2)
	}
}
