package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

var tracer = otel.Tracer("github.com/jhoicas/inventario-kardex/internal/application/inventory")

// LedgerUseCase registra movimientos de inventario de forma transaccional:
// bloqueo de la fila de saldo (SELECT FOR UPDATE), validación de saldo negativo,
// escritura del saldo, del espejo en el artículo y del movimiento inmutable, todo con Commit/Rollback.
type LedgerUseCase struct {
	txRunner    TxRunner
	articleRepo repository.ArticleRepository
	log         zerolog.Logger
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, articleRepo repository.ArticleRepository, log zerolog.Logger) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:    txRunner,
		articleRepo: articleRepo,
		log:         log.With().Str("component", "ledger").Logger(),
	}
}

// MovementInput entrada de CreateMovement. Quantity va en la unidad indicada (se convierte a unidad base).
type MovementInput struct {
	CompanyID      string
	ArticleID      string
	WarehouseID    *string
	Unit           string
	Quantity       decimal.Decimal
	Direction      entity.Direction
	Reason         entity.Reason
	DocumentType   string
	DocumentID     string
	Override       bool
	IdempotencyKey string
	Actor          string
}

// MovementResult movimiento aplicado (o el original si fue una repetición idempotente) y saldo resultante.
type MovementResult struct {
	Movement *entity.StockMovement
	Balance  *entity.StockBalance
	Replayed bool
}

// CreateMovement aplica un movimiento simple.
//  1. Clave de idempotencia ya usada → devuelve el movimiento original sin escribir nada.
//  2. Convierte la cantidad a unidad base.
//  3. En una sola transacción: bloquea el saldo, valida que no quede negativo (salvo override),
//     guarda saldo, espejo del artículo y movimiento.
func (uc *LedgerUseCase) CreateMovement(ctx context.Context, in MovementInput) (res *MovementResult, err error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateMovement", trace.WithAttributes(
		attribute.String("company_id", in.CompanyID),
		attribute.String("article_id", in.ArticleID),
		attribute.String("reason", string(in.Reason)),
	))
	defer func() { endSpan(span, err) }()

	if err := validateMovementInput(in); err != nil {
		return nil, err
	}
	article, err := uc.articleRepo.GetByID(ctx, in.CompanyID, in.ArticleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.Conflict("el artículo %s no existe", in.ArticleID)
	}
	if !article.TracksStock() {
		return nil, domain.Invalid("el artículo %s no lleva saldo propio (servicio, combo o sin control de stock)", article.ID)
	}
	baseQty, err := domaininv.ToBaseUnit(article, in.Unit, in.Quantity)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		articleRepo repository.ArticleRepository,
	) error {
		var txErr error
		res, txErr = applyMovement(ctx, movRepo, balanceRepo, articleRepo, in, baseQty, now)
		return txErr
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// Otra transacción insertó la misma clave entre nuestra búsqueda y el insert.
		return uc.replay(ctx, in.CompanyID, in.IdempotencyKey)
	}
	if err != nil {
		uc.logFailure(in, err)
		return nil, err
	}
	uc.logApplied(res)
	return res, nil
}

// replay relee en una transacción nueva el movimiento ya registrado con la clave.
func (uc *LedgerUseCase) replay(ctx context.Context, companyID, key string) (*MovementResult, error) {
	var res *MovementResult
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		_ repository.ArticleRepository,
	) error {
		existing, err := movRepo.GetByIdempotencyKey(ctx, companyID, key)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("clave de idempotencia %q duplicada pero no encontrada", key)
		}
		bal, err := balanceRepo.Get(ctx, existing.Key())
		if err != nil {
			return err
		}
		res = &MovementResult{Movement: existing, Balance: bal, Replayed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logApplied(res)
	return res, nil
}

// applyMovement es el núcleo transaccional; usa solo repositorios atados a la tx.
// La clave de idempotencia se busca antes de tocar el saldo: una repetición no crea ni bloquea
// filas. Tras el bloqueo se vuelve a buscar, porque un reintento concurrente sobre la misma
// clave de saldo pudo confirmar mientras esperábamos.
func applyMovement(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	articleRepo repository.ArticleRepository,
	in MovementInput,
	baseQty decimal.Decimal,
	now time.Time,
) (*MovementResult, error) {
	if res, err := findReplay(ctx, movRepo, balanceRepo, in); res != nil || err != nil {
		return res, err
	}

	key := entity.BalanceKey{CompanyID: in.CompanyID, ArticleID: in.ArticleID, WarehouseID: in.WarehouseID}
	balance, err := balanceRepo.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if res, err := findReplay(ctx, movRepo, balanceRepo, in); res != nil || err != nil {
		return res, err
	}

	delta := baseQty.Mul(in.Direction.Sign())
	newQty := balance.Quantity.Add(delta)
	if in.Direction == entity.DirectionOut && newQty.IsNegative() && !in.Override {
		return nil, fmt.Errorf("%w: artículo %s disponible %s, requerido %s",
			domain.ErrInsufficientStock, in.ArticleID, balance.Quantity.String(), baseQty.String())
	}

	balance.Quantity = newQty
	balance.UpdatedAt = now
	if err := balanceRepo.Upsert(ctx, balance); err != nil {
		return nil, err
	}

	// Espejo desnormalizado: se recalcula desde los saldos, nunca se incrementa.
	total, err := balanceRepo.SumByArticle(ctx, in.CompanyID, in.ArticleID)
	if err != nil {
		return nil, err
	}
	if err := articleRepo.UpdateStockTotal(ctx, in.CompanyID, in.ArticleID, total); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ID:             uuid.New().String(),
		CompanyID:      in.CompanyID,
		ArticleID:      in.ArticleID,
		WarehouseID:    in.WarehouseID,
		Unit:           domaininv.CanonicalUnit(in.Unit),
		Quantity:       in.Quantity,
		BaseQuantity:   baseQty,
		Direction:      in.Direction,
		Reason:         in.Reason,
		DocumentType:   in.DocumentType,
		DocumentID:     in.DocumentID,
		IdempotencyKey: in.IdempotencyKey,
		Override:       in.Override,
		CreatedAt:      now,
		CreatedBy:      in.Actor,
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	return &MovementResult{Movement: mov, Balance: balance}, nil
}

// findReplay devuelve el movimiento ya registrado con la clave de idempotencia, con el saldo
// actual de su propia clave de saldo, o nil si la clave no se usó.
func findReplay(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	in MovementInput,
) (*MovementResult, error) {
	if in.IdempotencyKey == "" {
		return nil, nil
	}
	existing, err := movRepo.GetByIdempotencyKey(ctx, in.CompanyID, in.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	current, err := balanceRepo.Get(ctx, existing.Key())
	if err != nil {
		return nil, err
	}
	return &MovementResult{Movement: existing, Balance: current, Replayed: true}, nil
}

func validateMovementInput(in MovementInput) error {
	switch {
	case in.CompanyID == "":
		return domain.Invalid("company_id requerido")
	case in.ArticleID == "":
		return domain.Invalid("article_id requerido")
	case in.WarehouseID != nil && *in.WarehouseID == "":
		return domain.Invalid("warehouse_id vacío")
	case !in.Direction.Valid():
		return domain.Invalid("dirección desconocida %q", in.Direction)
	case !in.Reason.Valid():
		return domain.Invalid("motivo desconocido %q", in.Reason)
	case !in.Reason.AllowsDirection(in.Direction):
		return domain.Invalid("el motivo %s no admite dirección %s", in.Reason, in.Direction)
	case len(in.IdempotencyKey) > domaininv.MaxIdempotencyKeyLength:
		return domain.Invalid("clave de idempotencia demasiado larga")
	}
	return nil
}

func (uc *LedgerUseCase) logApplied(res *MovementResult) {
	if res == nil || res.Movement == nil {
		return
	}
	m := res.Movement
	uc.log.Info().
		Str("company_id", m.CompanyID).
		Str("article_id", m.ArticleID).
		Str("movement_id", m.ID).
		Str("reason", string(m.Reason)).
		Str("base_qty", m.BaseQuantity.String()).
		Str("balance", res.Balance.Quantity.String()).
		Bool("replayed", res.Replayed).
		Msg("movimiento de inventario")
}

func (uc *LedgerUseCase) logFailure(in MovementInput, err error) {
	ev := uc.log.Warn()
	if domain.KindOf(err) == domain.KindInternal {
		ev = uc.log.Error()
	}
	ev.Err(err).
		Str("company_id", in.CompanyID).
		Str("article_id", in.ArticleID).
		Str("reason", string(in.Reason)).
		Bool("override", in.Override).
		Msg("movimiento rechazado")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ManualDocumentType tipo de documento de los ajustes manuales.
const ManualDocumentType = "ADJUSTMENT"

// RegisterManualMovement registra un ajuste hecho por un usuario (conteo físico, merma, ingreso manual).
// Solo admite los motivos MANUAL y ADJUSTMENT_*; exige actor. Sin motivo se usa MANUAL.
func (uc *LedgerUseCase) RegisterManualMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if in.Reason == "" {
		in.Reason = entity.ReasonManual
	}
	switch in.Reason {
	case entity.ReasonManual, entity.ReasonAdjustmentIn, entity.ReasonAdjustmentOut:
	default:
		return nil, domain.Invalid("el motivo %s no es un ajuste manual", in.Reason)
	}
	if in.Actor == "" {
		return nil, domain.Invalid("el ajuste manual requiere usuario")
	}
	if in.DocumentType == "" {
		in.DocumentType = ManualDocumentType
	}
	return uc.CreateMovement(ctx, in)
}
