package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
	"github.com/facturia/ocr-api/pkg/logger"
)

// OCROrchestrator orquesta el ciclo de extracción:
//
//	PENDING → PROCESSING → COMPLETED / ERROR
//
// El despacho corre en goroutine independiente con context.Background() +
// timeout propio, desacoplado del ciclo HTTP. El motor externo es el único
// punto legítimo de bloqueo del core; por eso cada despacho es cancelable
// (Cancel → ERROR con motivo "Cancelled") y con tope de tiempo (→ ERROR con
// motivo "Timeout"): una factura nunca queda atascada en PROCESSING.
type OCROrchestrator struct {
	engine      OCREngine
	txRunner    BillingTxRunner
	invoiceRepo repository.InvoiceRepository
	valPolicy   domainbilling.ValidationPolicy
	appPolicy   domainbilling.ApprovalPolicy
	timeout     time.Duration
	log         *logger.Logger

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc // cancelaciones por invoice_id
}

// NewOCROrchestrator construye el orquestador. timeout <= 0 usa 30s.
func NewOCROrchestrator(
	engine OCREngine,
	txRunner BillingTxRunner,
	invoiceRepo repository.InvoiceRepository,
	valPolicy domainbilling.ValidationPolicy,
	appPolicy domainbilling.ApprovalPolicy,
	timeout time.Duration,
	log *logger.Logger,
) *OCROrchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OCROrchestrator{
		engine:      engine,
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		valPolicy:   valPolicy,
		appPolicy:   appPolicy,
		timeout:     timeout,
		log:         log,
	}
}

// Dispatch mueve la factura de PENDING a PROCESSING y dispara la extracción
// en goroutine propia. Devuelve ErrIllegalTransition si la factura no está en
// PENDING.
func (o *OCROrchestrator) Dispatch(ctx context.Context, invoiceID string) error {
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if !domainbilling.CanTransition(inv.Status, entity.StatusProcessing) {
		return domain.ErrIllegalTransition
	}

	if err := o.setStatus(ctx, inv, entity.StatusProcessing, ""); err != nil {
		return err
	}

	extractCtx, cancel := context.WithTimeout(context.Background(), o.timeout)
	o.mu.Lock()
	if o.inFlight == nil {
		o.inFlight = make(map[string]context.CancelFunc)
	}
	o.inFlight[invoiceID] = cancel
	o.mu.Unlock()

	go o.process(extractCtx, invoiceID, inv.OCREngine, inv.FilePath)
	return nil
}

// Cancel aborta una extracción en vuelo. Si no hay despacho en curso para la
// factura devuelve ErrNotFound. La factura termina en ERROR con motivo
// "Cancelled" (la goroutine de proceso lo persiste al observar el contexto).
func (o *OCROrchestrator) Cancel(invoiceID string) error {
	o.mu.Lock()
	cancel, ok := o.inFlight[invoiceID]
	o.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	cancel()
	return nil
}

// process es el núcleo de la goroutine de extracción. Siempre termina
// persistiendo COMPLETED o ERROR.
func (o *OCROrchestrator) process(ctx context.Context, invoiceID, engineName, filePath string) {
	defer func() {
		o.mu.Lock()
		delete(o.inFlight, invoiceID)
		o.mu.Unlock()
	}()

	raw, err := o.engine.Extract(ctx, engineName, filePath)
	if err != nil {
		reason := "ExtractionFailed"
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrTimeout):
			reason = "Timeout"
		case errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrCancelled):
			reason = "Cancelled"
		}
		o.markError(invoiceID, reason, err)
		return
	}

	// Piso duro de confianza: sin campos utilizables, la factura va a ERROR.
	if raw.Confidence.LessThan(o.valPolicy.HardFloor) {
		o.markError(invoiceID, "LowConfidenceFloor", domain.ErrExtractionFailed)
		return
	}

	o.complete(invoiceID, raw)
}

// complete puebla el agregado con la extracción, recalcula y transiciona a
// COMPLETED; aplica auto-aprobación si la política lo permite.
func (o *OCROrchestrator) complete(invoiceID string, raw *dto.RawExtraction) {
	ctx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPersist()

	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil || inv == nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("factura no encontrada al completar extracción")
		return
	}
	if inv.Status != entity.StatusProcessing {
		o.log.Warn().Str("invoice_id", invoiceID).Str("status", inv.Status).Msg("estado inesperado al completar, saltando")
		return
	}

	populateFromExtraction(inv, raw)
	if err := domainbilling.Recompute(inv); err != nil {
		o.markError(invoiceID, "ExtractionFailed", err)
		return
	}
	if err := o.setStatus(ctx, inv, entity.StatusCompleted, ""); err != nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("no se pudo persistir COMPLETED")
		return
	}

	findings := domainbilling.Validate(inv, o.valPolicy)
	if domainbilling.ShouldAutoApprove(inv, o.appPolicy, findings) {
		if err := o.setStatus(ctx, inv, entity.StatusApproved, "auto-aprobación por confianza OCR"); err != nil {
			o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("no se pudo persistir auto-aprobación")
			return
		}
		o.log.Info().Str("invoice_id", invoiceID).Str("confidence", inv.OCRConfidence.String()).Msg("factura auto-aprobada")
	}
}

// markError transiciona la factura a ERROR con el motivo dado.
func (o *OCROrchestrator) markError(invoiceID, reason string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil || inv == nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("factura no encontrada al marcar ERROR")
		return
	}
	if inv.Status != entity.StatusProcessing {
		return
	}
	if err := o.setStatus(ctx, inv, entity.StatusError, reason); err != nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("no se pudo persistir ERROR")
		return
	}
	o.log.Warn().
		Str("invoice_id", invoiceID).
		Str("reason", reason).
		Err(cause).
		Msg("extracción fallida")
}

// setStatus persiste una transición de sistema con su entrada de bitácora en
// una sola transacción. Usa la versión actual como esperada: si otro actor
// mutó en paralelo, el update falla y no se aplica nada.
func (o *OCROrchestrator) setStatus(ctx context.Context, inv *entity.Invoice, target, reason string) error {
	now := time.Now()
	from := inv.Status
	expected := inv.Version
	inv.Status = target
	inv.Version = expected + 1
	inv.UpdatedAt = now
	inv.UpdatedBy = "system"

	return o.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := invoiceRepo.Update(ctx, inv, expected); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLogEntry{
			ID:        uuid.New().String(),
			InvoiceID: inv.ID,
			UserID:    "system",
			UserName:  "motor OCR",
			Action:    entity.AuditActionStatusChange,
			Changes: []entity.Change{{
				Kind:   entity.ChangeKindStatus,
				Status: &entity.StatusChange{From: from, To: target, Reason: reason},
			}},
			Timestamp: now,
		})
	})
}

// populateFromExtraction vuelca los campos extraídos sobre el agregado.
func populateFromExtraction(inv *entity.Invoice, raw *dto.RawExtraction) {
	if raw.Series != "" {
		inv.Series = raw.Series
	}
	if raw.IssuerName != "" {
		inv.IssuerName = raw.IssuerName
	}
	if raw.IssuerTaxID != "" {
		inv.IssuerTaxID = raw.IssuerTaxID
	}
	if raw.ReceiverName != "" {
		inv.ReceiverName = raw.ReceiverName
	}
	if raw.ReceiverTaxID != "" {
		inv.ReceiverTaxID = raw.ReceiverTaxID
	}
	inv.OCRConfidence = raw.Confidence
	inv.ProcessingTime = raw.ProcessingTime
	inv.WithholdingTotal = raw.WithholdingTotal
	inv.OCRAssertedTotal = raw.AssertedTotal

	if len(raw.Items) > 0 {
		inv.Items = make([]entity.LineItem, 0, len(raw.Items))
		for _, it := range raw.Items {
			inv.Items = append(inv.Items, entity.LineItem{
				ID:              uuid.New().String(),
				Description:     it.Description,
				Quantity:        it.Quantity,
				UnitPrice:       it.UnitPrice,
				DiscountPercent: it.DiscountPercent,
				TaxPercent:      it.TaxPercent,
			})
		}
	}
	if len(raw.Payments) > 0 {
		inv.Payments = make([]entity.Payment, 0, len(raw.Payments))
		for _, p := range raw.Payments {
			due, err := time.Parse("2006-01-02", p.DueDate)
			if err != nil {
				continue
			}
			inv.Payments = append(inv.Payments, entity.Payment{
				Number:  p.Number,
				DueDate: due,
				Amount:  p.Amount,
			})
		}
	}
}
