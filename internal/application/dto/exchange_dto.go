package dto

// ExchangeRequest entrada del intercambio: el sobre recibido de otro
// contribuyente (base64) y los datos de la respuesta.
type ExchangeRequest struct {
	ReceivedEnvelope []byte `json:"received_envelope" validate:"required"`
	IdRespuesta      int    `json:"id_respuesta"`
	Recinto          string `json:"recinto"`
}

// ExchangeResponse los tres XML firmados de respuesta.
type ExchangeResponse struct {
	Reception []byte `json:"reception"`
	Receipts  []byte `json:"receipts"`
	Result    []byte `json:"result"`
}
