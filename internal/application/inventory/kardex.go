package inventory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

// Paginación del kardex.
const (
	DefaultHistoryPageSize = 50
	MaxHistoryPageSize     = 500
)

// HistoryQuery consulta del kardex. WarehouseID nil agrega todas las bodegas.
// DateFrom y DateTo se toman como días completos (UTC), ambos inclusivos.
type HistoryQuery struct {
	CompanyID   string
	ArticleID   string
	WarehouseID *string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

// History página del kardex con saldo inicial y saldo actual.
type History struct {
	ArticleID       string
	WarehouseID     *string
	DateFrom        *time.Time
	DateTo          *time.Time
	StartingBalance decimal.Decimal
	CurrentBalance  decimal.Decimal
	Rows            []domaininv.KardexRow
	Page            int
	PageSize        int
	Total           int
}

// ExportFile archivo generado por ExportHistory.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// HistoryUseCase reconstruye el kardex de un artículo desde el ledger.
type HistoryUseCase struct {
	txRunner    TxRunner
	articleRepo repository.ArticleRepository
	movRepo     repository.StockMovementRepository
	balanceRepo repository.StockBalanceRepository
	exporters   map[string]HistoryExporter
	log         zerolog.Logger
}

// NewHistoryUseCase construye el caso de uso. exporters se indexa por formato (csv, json, xlsx, pdf).
func NewHistoryUseCase(
	txRunner TxRunner,
	articleRepo repository.ArticleRepository,
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	exporters map[string]HistoryExporter,
	log zerolog.Logger,
) *HistoryUseCase {
	byFormat := make(map[string]HistoryExporter, len(exporters))
	for format, e := range exporters {
		byFormat[strings.ToLower(format)] = e
	}
	return &HistoryUseCase{
		txRunner:    txRunner,
		articleRepo: articleRepo,
		movRepo:     movRepo,
		balanceRepo: balanceRepo,
		exporters:   byFormat,
		log:         log.With().Str("component", "kardex").Logger(),
	}
}

// Formats formatos de exportación registrados, ordenados.
func (uc *HistoryUseCase) Formats() []string {
	out := make([]string, 0, len(uc.exporters))
	for f := range uc.exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// GetHistory devuelve una página del kardex.
// El saldo inicial de la página es la suma con signo de todo lo anterior a DateFrom más las filas
// de la ventana que quedan antes de la página; así el saldo acumulado es continuo entre páginas.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, q HistoryQuery) (h *History, err error) {
	ctx, span := tracer.Start(ctx, "kardex.GetHistory", trace.WithAttributes(
		attribute.String("company_id", q.CompanyID),
		attribute.String("article_id", q.ArticleID),
		attribute.Int("page", q.Page),
	))
	defer func() { endSpan(span, err) }()

	q, err = normalizeHistoryQuery(q)
	if err != nil {
		return nil, err
	}
	article, err := uc.articleRepo.GetByID(ctx, q.CompanyID, q.ArticleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.Conflict("el artículo %s no existe", q.ArticleID)
	}
	return uc.page(ctx, q)
}

func (uc *HistoryUseCase) page(ctx context.Context, q HistoryQuery) (*History, error) {
	window := historyFilter(q)
	offset := (q.Page - 1) * q.PageSize

	starting := decimal.Zero
	if window.From != nil {
		before := window
		before.From, before.Before = nil, window.From
		sum, err := uc.movRepo.SumSigned(ctx, before)
		if err != nil {
			return nil, err
		}
		starting = starting.Add(sum)
	}
	if offset > 0 {
		skipped := window
		skipped.Limit = offset
		sum, err := uc.movRepo.SumSigned(ctx, skipped)
		if err != nil {
			return nil, err
		}
		starting = starting.Add(sum)
	}

	total, err := uc.movRepo.Count(ctx, window)
	if err != nil {
		return nil, err
	}
	paged := window
	paged.Limit, paged.Offset = q.PageSize, offset
	movements, err := uc.movRepo.List(ctx, paged)
	if err != nil {
		return nil, err
	}

	current, err := uc.currentBalance(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := domaininv.WalkRunningBalance(starting, movements)
	h := &History{
		ArticleID:       q.ArticleID,
		WarehouseID:     q.WarehouseID,
		DateFrom:        q.DateFrom,
		DateTo:          q.DateTo,
		StartingBalance: starting,
		CurrentBalance:  current,
		Rows:            rows,
		Page:            q.Page,
		PageSize:        q.PageSize,
		Total:           total,
	}

	// Sin tope de fecha, la última fila de la última página debe coincidir con el saldo.
	// La lectura no bloquea, así que un movimiento concurrente puede desfasarlos: solo se registra.
	if q.DateTo == nil && len(rows) > 0 && offset+len(rows) == total {
		if last := rows[len(rows)-1].RunningBalance; !last.Equal(current) {
			uc.log.Error().
				Err(domain.ErrConsistency).
				Str("company_id", q.CompanyID).
				Str("article_id", q.ArticleID).
				Str("history_balance", last.String()).
				Str("current_balance", current.String()).
				Msg("kardex no cuadra con el saldo")
		}
	}
	return h, nil
}

func (uc *HistoryUseCase) currentBalance(ctx context.Context, q HistoryQuery) (decimal.Decimal, error) {
	if q.WarehouseID == nil {
		return uc.balanceRepo.SumByArticle(ctx, q.CompanyID, q.ArticleID)
	}
	bal, err := uc.balanceRepo.Get(ctx, entity.BalanceKey{CompanyID: q.CompanyID, ArticleID: q.ArticleID, WarehouseID: q.WarehouseID})
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Quantity, nil
}

// ExportHistory genera el kardex completo del rango (todas las páginas) en el formato pedido.
func (uc *HistoryUseCase) ExportHistory(ctx context.Context, q HistoryQuery, format string) (file *ExportFile, err error) {
	ctx, span := tracer.Start(ctx, "kardex.ExportHistory", trace.WithAttributes(
		attribute.String("company_id", q.CompanyID),
		attribute.String("article_id", q.ArticleID),
		attribute.String("format", format),
	))
	defer func() { endSpan(span, err) }()

	exporter, ok := uc.exporters[strings.ToLower(format)]
	if !ok {
		return nil, domain.Invalid("formato de exportación no soportado: %q", format)
	}
	q.Page, q.PageSize = 1, MaxHistoryPageSize
	q, err = normalizeHistoryQuery(q)
	if err != nil {
		return nil, err
	}
	article, err := uc.articleRepo.GetByID(ctx, q.CompanyID, q.ArticleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.Conflict("el artículo %s no existe", q.ArticleID)
	}

	full, err := uc.page(ctx, q)
	if err != nil {
		return nil, err
	}
	for len(full.Rows) < full.Total {
		q.Page++
		next, err := uc.page(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(next.Rows) == 0 {
			break
		}
		full.Rows = append(full.Rows, next.Rows...)
		full.CurrentBalance = next.CurrentBalance
	}
	full.Page, full.PageSize = 1, len(full.Rows)

	var buf bytes.Buffer
	if err := exporter.Write(&buf, article, full); err != nil {
		return nil, fmt.Errorf("exportar kardex %s: %w", format, err)
	}
	name := article.SKU
	if name == "" {
		name = article.ID
	}
	uc.log.Info().Str("company_id", q.CompanyID).Str("article_id", q.ArticleID).
		Str("format", format).Int("rows", len(full.Rows)).Msg("kardex exportado")
	return &ExportFile{
		FileName:    fmt.Sprintf("kardex_%s.%s", sanitizeFileName(name), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// VerifyBalance compara, con la fila de saldo bloqueada, el saldo guardado contra la suma del ledger.
// Devuelve domain.ErrConsistency si difieren.
func (uc *HistoryUseCase) VerifyBalance(ctx context.Context, key entity.BalanceKey) (err error) {
	ctx, span := tracer.Start(ctx, "kardex.VerifyBalance", trace.WithAttributes(
		attribute.String("company_id", key.CompanyID),
		attribute.String("article_id", key.ArticleID),
	))
	defer func() { endSpan(span, err) }()

	if key.CompanyID == "" || key.ArticleID == "" {
		return domain.Invalid("company_id y article_id requeridos")
	}
	return uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		_ repository.ArticleRepository,
	) error {
		bal, err := balanceRepo.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		sum, err := movRepo.SumSigned(ctx, repository.MovementFilter{
			CompanyID:   key.CompanyID,
			ArticleID:   key.ArticleID,
			WarehouseID: key.WarehouseID,
		})
		if err != nil {
			return err
		}
		if !sum.Equal(bal.Quantity) {
			uc.log.Error().
				Str("company_id", key.CompanyID).
				Str("article_id", key.ArticleID).
				Str("warehouse_id", key.Warehouse()).
				Str("balance", bal.Quantity.String()).
				Str("ledger", sum.String()).
				Msg("saldo inconsistente con el ledger")
			return fmt.Errorf("%w: saldo %s, ledger %s", domain.ErrConsistency, bal.Quantity.String(), sum.String())
		}
		return nil
	})
}

func normalizeHistoryQuery(q HistoryQuery) (HistoryQuery, error) {
	if q.CompanyID == "" {
		return q, domain.Invalid("company_id requerido")
	}
	if q.ArticleID == "" {
		return q, domain.Invalid("article_id requerido")
	}
	if q.WarehouseID != nil && *q.WarehouseID == "" {
		q.WarehouseID = nil
	}
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = DefaultHistoryPageSize
	case q.PageSize > MaxHistoryPageSize:
		q.PageSize = MaxHistoryPageSize
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return q, domain.Invalid("date_to anterior a date_from")
	}
	return q, nil
}

func historyFilter(q HistoryQuery) repository.MovementFilter {
	f := repository.MovementFilter{
		CompanyID:     q.CompanyID,
		ArticleID:     q.ArticleID,
		WarehouseID:   q.WarehouseID,
		AllWarehouses: q.WarehouseID == nil,
	}
	if q.DateFrom != nil {
		from := startOfDay(*q.DateFrom)
		f.From = &from
	}
	if q.DateTo != nil {
		before := startOfDay(*q.DateTo).AddDate(0, 0, 1)
		f.Before = &before
	}
	return f
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// sanitizeFileName quita tildes (CAFÉ → CAFE) y reemplaza lo que no sea [A-Za-z0-9_-] por '_'.
func sanitizeFileName(s string) string {
	if plain, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s); err == nil {
		s = plain
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
