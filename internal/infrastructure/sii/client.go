// Cliente HTTP de los servicios del SII: semilla/token, carga de envíos y
// consulta de estado por track id.

package sii

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// Ambientes del SII.
const (
	EnvCertificacion = "SIITEST" // maullin: ambiente de certificación
	EnvProduccion    = "SII"     // palena: ambiente de producción

	hostCertificacion = "maullin.sii.cl"
	hostProduccion    = "palena.sii.cl"

	// userAgent identificador exigido por la recepción de uploads del SII.
	userAgent = "Mozilla/4.0 (compatible; PROG 1.0; Windows NT 5.0; YComp 5.0.2.4)"

	seedPath   = "/DTEWS/CrSeed.jws"
	tokenPath  = "/DTEWS/GetTokenFromSeed.jws"
	uploadPath = "/cgi_dte/UPL/DTEUpload"
	queryPath  = "/DTEWS/QueryEstUp.jws"
)

var (
	semillaRe  = regexp.MustCompile(`<SEMILLA>([^<]+)</SEMILLA>`)
	tokenRe    = regexp.MustCompile(`<TOKEN>([^<]+)</TOKEN>`)
	statusRe   = regexp.MustCompile(`<STATUS>([^<]+)</STATUS>`)
	trackIDRe  = regexp.MustCompile(`<TRACKID>([^<]+)</TRACKID>`)
	estadoRe   = regexp.MustCompile(`<ESTADO>([^<]+)</ESTADO>`)
	errCodeRe  = regexp.MustCompile(`<ERR_CODE>([^<]+)</ERR_CODE>`)
	glosaRe    = regexp.MustCompile(`<GLOSA>([^<]+)</GLOSA>`)
	counterRes = map[string]*regexp.Regexp{
		"INFORMADOS": regexp.MustCompile(`<INFORMADOS>([^<]+)</INFORMADOS>`),
		"ACEPTADOS":  regexp.MustCompile(`<ACEPTADOS>([^<]+)</ACEPTADOS>`),
		"RECHAZADOS": regexp.MustCompile(`<RECHAZADOS>([^<]+)</RECHAZADOS>`),
		"REPAROS":    regexp.MustCompile(`<REPAROS>([^<]+)</REPAROS>`),
	}
)

// AuthResult token de sesión obtenido del handshake semilla/token.
type AuthResult struct {
	Token string
	Raw   []byte
}

// UploadResult respuesta inmediata de la recepción de un envío.
type UploadResult struct {
	TrackID string
	Status  string
	Raw     []byte
}

// StatusResult estado asíncrono de un envío consultado por track id.
type StatusResult struct {
	Estado  string
	ErrCode string
	Glosa   string

	// Contadores del detalle, necesarios para desambiguar EPR.
	Informados int
	Aceptados  int
	Rechazados int
	Reparos    int

	Raw []byte
}

// Client habla con los servicios de certificación o producción del SII.
// Las llamadas son síncronas y sin reintentos: la política de reintento es
// del invocante (volver a ejecutar la acción de consulta).
type Client struct {
	httpClient *http.Client
	baseURL    string
	signer     pkgsii.Signer
	log        *logger.Logger
}

// NewClient construye el cliente para el ambiente indicado.
func NewClient(environment string, signer pkgsii.Signer, log *logger.Logger) (*Client, error) {
	var host string
	switch environment {
	case EnvCertificacion:
		host = hostCertificacion
	case EnvProduccion:
		host = hostProduccion
	default:
		return nil, fmt.Errorf("sii: ambiente desconocido %q (usar %s o %s)", environment, EnvCertificacion, EnvProduccion)
	}
	return NewClientWithBaseURL("https://"+host, signer, log), nil
}

// NewClientWithBaseURL construye el cliente contra una URL base arbitraria.
func NewClientWithBaseURL(baseURL string, signer pkgsii.Signer, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		// El SII puede tardar varios segundos en responder.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		signer:     signer,
		log:        log,
	}
}

// Authenticate ejecuta el handshake completo: pide la semilla, la firma con
// el certificado del cliente y la canjea por un token de sesión.
func (c *Client) Authenticate(ctx context.Context, cert pkgsii.Certificate) (*AuthResult, error) {
	seed, err := c.getSeed(ctx)
	if err != nil {
		return nil, err
	}

	request := fmt.Sprintf("<getToken><item><Semilla>%s</Semilla></item></getToken>", seed)
	signed, err := c.signer.Sign([]byte(request), pkgsii.ShapeToken, "", cert)
	if err != nil {
		return nil, fmt.Errorf("sii: firmar solicitud de token: %w", err)
	}

	raw, err := c.post(ctx, tokenPath, "application/xml", bytes.NewReader(signed), nil)
	if err != nil {
		return nil, fmt.Errorf("sii: canjear semilla por token: %w", err)
	}

	token := extract(tokenRe, raw)
	if token == "" {
		return nil, fmt.Errorf("sii: %w: la respuesta no contiene TOKEN: %s", domain.ErrSiiAuthFailed, truncate(string(raw), 300))
	}

	c.log.Info().Str("ambiente", c.baseURL).Msg("token de sesión obtenido")
	return &AuthResult{Token: token, Raw: raw}, nil
}

// getSeed obtiene la semilla de autenticación (CrSeed).
func (c *Client) getSeed(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+seedPath, nil)
	if err != nil {
		return "", fmt.Errorf("sii: crear request de semilla: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("sii: obtener semilla: %w", err)
	}

	seed := extract(semillaRe, raw)
	if seed == "" {
		return "", fmt.Errorf("sii: %w: la respuesta no contiene SEMILLA: %s", domain.ErrSiiAuthFailed, truncate(string(raw), 300))
	}
	return seed, nil
}

// Upload carga un sobre o libro firmado. El RUT emisor y el del enviante
// viajan separados en cuerpo y dígito verificador.
func (c *Client) Upload(ctx context.Context, token, senderRUT, companyRUT, filename string, content []byte) (*UploadResult, error) {
	rutSender, dvSender, err := pkgsii.SplitRUT(senderRUT)
	if err != nil {
		return nil, fmt.Errorf("sii: RUT del enviante: %w", err)
	}
	rutCompany, dvCompany, err := pkgsii.SplitRUT(companyRUT)
	if err != nil {
		return nil, fmt.Errorf("sii: RUT de la empresa: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"rutSender":  rutSender,
		"dvSender":   dvSender,
		"rutCompany": rutCompany,
		"dvCompany":  dvCompany,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("sii: armar multipart: %w", err)
		}
	}
	part, err := mw.CreateFormFile("archivo", filename)
	if err != nil {
		return nil, fmt.Errorf("sii: armar multipart: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("sii: armar multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("sii: cerrar multipart: %w", err)
	}

	headers := map[string]string{"Cookie": "TOKEN=" + token}
	raw, err := c.post(ctx, uploadPath, mw.FormDataContentType(), &body, headers)
	if err != nil {
		return nil, fmt.Errorf("sii: subir archivo: %w", err)
	}

	status := extract(statusRe, raw)
	if status != "0" {
		msg, ok := pkgsii.UploadStatusMessages[status]
		if !ok {
			msg = "código de recepción desconocido"
		}
		return nil, fmt.Errorf("sii: %w: STATUS %s: %s", domain.ErrSiiUploadRejected, status, msg)
	}

	trackID := extract(trackIDRe, raw)
	if trackID == "" {
		return nil, fmt.Errorf("sii: %w: STATUS 0 sin TRACKID: %s", domain.ErrSiiUploadRejected, truncate(string(raw), 300))
	}

	c.log.Info().
		Str("archivo", filename).
		Str("track_id", trackID).
		Msg("envío recibido por el SII")
	return &UploadResult{TrackID: trackID, Status: status, Raw: raw}, nil
}

// QueryStatus consulta el estado de procesamiento de un envío por track id.
func (c *Client) QueryStatus(ctx context.Context, token, senderRUT, trackID string) (*StatusResult, error) {
	rut, dv, err := pkgsii.SplitRUT(senderRUT)
	if err != nil {
		return nil, fmt.Errorf("sii: RUT del enviante: %w", err)
	}

	form := fmt.Sprintf("rutCompany=%s&dvCompany=%s&trackId=%s&token=%s", rut, dv, trackID, token)
	headers := map[string]string{"Cookie": "TOKEN=" + token}
	raw, err := c.post(ctx, queryPath, "application/x-www-form-urlencoded", strings.NewReader(form), headers)
	if err != nil {
		return nil, fmt.Errorf("sii: consultar estado: %w", err)
	}

	result := &StatusResult{
		Estado:  extract(estadoRe, raw),
		ErrCode: extract(errCodeRe, raw),
		Glosa:   extract(glosaRe, raw),
		Raw:     raw,
	}
	if result.Estado == "" {
		return nil, fmt.Errorf("sii: la respuesta de estado no contiene ESTADO: %s", truncate(string(raw), 300))
	}
	result.Informados = extractInt(counterRes["INFORMADOS"], raw)
	result.Aceptados = extractInt(counterRes["ACEPTADOS"], raw)
	result.Rechazados = extractInt(counterRes["RECHAZADOS"], raw)
	result.Reparos = extractInt(counterRes["REPAROS"], raw)

	c.log.Debug().
		Str("track_id", trackID).
		Str("estado", result.Estado).
		Msg("estado de envío consultado")
	return result, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("crear request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, fmt.Errorf("timeout o cancelación: %w", req.Context().Err())
		}
		return nil, fmt.Errorf("llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}
	return raw, nil
}

// extract busca el primer grupo del patrón. Las respuestas del SII suelen
// venir con el XML interno escapado dentro del SOAP, por eso se desescapa
// antes de buscar.
func extract(re *regexp.Regexp, raw []byte) string {
	text := unescapeXML(string(raw))
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractInt(re *regexp.Regexp, raw []byte) int {
	n, _ := strconv.Atoi(extract(re, raw))
	return n
}

func unescapeXML(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
