package sii

// =============================================================================
// Estados internos derivados de las respuestas asíncronas del SII.
// =============================================================================

const (
	SubmissionReceived    = "received"
	SubmissionValidating  = "validating"
	SubmissionAccepted    = "accepted"
	SubmissionRejected    = "rejected"
	SubmissionWithRepairs = "with_repairs"
)

// dteStatusMap códigos de estado de envíos de DTE (consulta por track id).
var dteStatusMap = map[string]string{
	"REC": SubmissionReceived,   // Recibido
	"PRD": SubmissionValidating, // Procesando
	"SOK": SubmissionAccepted,   // Schema OK
	"DOK": SubmissionAccepted,   // Documento aceptado
	"ACK": SubmissionAccepted,
	"RCH": SubmissionRejected, // Rechazado
	"RCT": SubmissionRejected, // Rechazado por trámite
	"RPR": SubmissionWithRepairs,
	"RLV": SubmissionWithRepairs, // Aceptado con reparos leves
}

// bookStatusMap códigos de estado específicos de libros de compra/venta.
var bookStatusMap = map[string]string{
	"LOK": SubmissionAccepted,
	"LTC": SubmissionAccepted,
	"LRH": SubmissionRejected,
	"LRC": SubmissionRejected,
	"LER": SubmissionWithRepairs,
	"LNC": SubmissionValidating,
	"LTO": SubmissionValidating,
}

// MapDTEStatus traduce un código ESTADO de envío de DTE al estado interno.
// EPR (Envío Procesado) NO es terminal por sí solo: debe resolverse con los
// contadores de documentos vía ResolveEPR. Devuelve ok=false para códigos
// desconocidos.
func MapDTEStatus(code string) (status string, ok bool) {
	s, ok := dteStatusMap[code]
	return s, ok
}

// MapBookStatus traduce un código ESTADO de envío de libro al estado interno.
func MapBookStatus(code string) (status string, ok bool) {
	s, ok := bookStatusMap[code]
	return s, ok
}

// ResolveEPR desambigua el código EPR usando los contadores del detalle:
// todos aceptados -> accepted, todos rechazados -> rejected, cualquier reparo
// o resultado mixto -> with_repairs, todo en cero -> validating (el SII aún
// no publica el detalle).
func ResolveEPR(informados, aceptados, rechazados, reparos int) string {
	switch {
	case reparos > 0:
		return SubmissionWithRepairs
	case informados > 0 && aceptados == informados:
		return SubmissionAccepted
	case informados > 0 && rechazados == informados:
		return SubmissionRejected
	case aceptados > 0 && rechazados > 0:
		return SubmissionWithRepairs
	default:
		return SubmissionValidating
	}
}

// =============================================================================
// Códigos STATUS de la respuesta inmediata de carga (DTEUpload).
// =============================================================================

// UploadStatusMessages glosa por código STATUS de la recepción de upload.
// El código "0" es el único exitoso (trae TRACKID).
var UploadStatusMessages = map[string]string{
	"0": "envío recibido correctamente",
	"1": "el archivo supera el tamaño máximo permitido",
	"2": "el archivo no fue reconocido",
	"3": "el archivo no contiene XML",
	"5": "falló la autenticación (token inválido o expirado)",
	"6": "el archivo tiene firma no válida",
	"7": "el RUT del usuario no tiene permiso para enviar",
}
