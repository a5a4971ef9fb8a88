package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

// Verificar en tiempo de compilación que HTTPClient implementa OCREngine.
var _ billing.OCREngine = (*HTTPClient)(nil)

// HTTPClient adaptador que implementa el puerto OCREngine contra los servicios
// HTTP de extracción (PaddleOCR, Docling, Tesseract). Cada motor expone el
// mismo endpoint POST /extract y devuelve la extracción estructurada.
// Usa net/http de la librería estándar de Go; no requiere SDK de los motores.
type HTTPClient struct {
	// baseURLs mapea nombre de motor a URL base de su servicio.
	baseURLs   map[string]string
	httpClient *http.Client
}

// NewHTTPClient construye el adaptador. Las URLs vacías dejan el motor
// correspondiente deshabilitado: llamarlo devuelve error descriptivo en lugar
// de panic.
func NewHTTPClient(paddleURL, doclingURL, tesseractURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURLs: map[string]string{
			entity.EnginePaddleOCR: paddleURL,
			entity.EngineDocling:   doclingURL,
			entity.EngineTesseract: tesseractURL,
		},
		httpClient: &http.Client{
			// Timeout de red; el orquestador impone además su propio
			// context.WithTimeout sobre el despacho completo.
			Timeout: timeout,
		},
	}
}

type extractRequest struct {
	FilePath string `json:"file_path"`
}

type extractError struct {
	Error string `json:"error"`
}

// Extract envía el documento al motor indicado y devuelve la extracción
// estructurada. Los errores de red, HTTP y decodificación se envuelven en
// domain.ErrExtractionFailed; la cancelación del contexto se propaga intacta
// para que el orquestador distinga Timeout/Cancelled de fallas del motor.
func (c *HTTPClient) Extract(ctx context.Context, engine, filePath string) (*dto.RawExtraction, error) {
	baseURL, ok := c.baseURLs[engine]
	if !ok {
		return nil, fmt.Errorf("%w: motor OCR desconocido %q", domain.ErrExtractionFailed, engine)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: motor %s sin URL configurada", domain.ErrExtractionFailed, engine)
	}

	body, err := json.Marshal(extractRequest{FilePath: filePath})
	if err != nil {
		return nil, fmt.Errorf("%w: serializar request: %v", domain.ErrExtractionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: crear HTTP request: %v", domain.ErrExtractionFailed, err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Timeout o cancelación del orquestador, no falla del motor.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: llamada HTTP a %s fallida: %v", domain.ErrExtractionFailed, engine, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta de %s: %v", domain.ErrExtractionFailed, engine, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp extractError
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrExtractionFailed, engine, errResp.Error)
		}
		return nil, fmt.Errorf("%w: %s HTTP %d", domain.ErrExtractionFailed, engine, resp.StatusCode)
	}

	var extraction dto.RawExtraction
	if err := json.Unmarshal(rawBody, &extraction); err != nil {
		return nil, fmt.Errorf("%w: deserializar extracción de %s: %v", domain.ErrExtractionFailed, engine, err)
	}

	// El motor remoto no siempre ecoa estos campos; completarlos aquí deja la
	// extracción autocontenida para el orquestador.
	if extraction.Engine == "" {
		extraction.Engine = engine
	}
	if extraction.FilePath == "" {
		extraction.FilePath = filePath
	}
	return &extraction, nil
}
