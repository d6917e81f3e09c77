// Constantes para firma XMLDSig según el perfil del SII (Chile).

package signer

// Namespaces y algoritmos. El ambiente de certificación del SII exige el
// perfil legado SHA1/RSA con canonicalización C14N sin comentarios.
const (
	NamespaceDS     = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceSiiDte = "http://www.sii.cl/SiiDte"
	AlgC14N         = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1      = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1         = "http://www.w3.org/2000/09/xmldsig#sha1"
)

// XMLDeclaration declaración que encabeza todo artefacto firmado.
// El SII exige ISO-8859-1, no UTF-8.
const XMLDeclaration = `<?xml version="1.0" encoding="ISO-8859-1" ?>`
