// Package messaging consume eventos de venta desde Kafka y los aplica al ledger.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/pkg/config"
)

// Tipos de evento que publica el módulo de ventas.
const (
	EventSaleCommitted = "sale.committed"
	EventSaleCancelled = "sale.cancelled"
)

// SaleEvent mensaje de venta pagada o anulada.
type SaleEvent struct {
	Type         string          `json:"type"`
	SaleID       string          `json:"sale_id"`
	CompanyID    string          `json:"company_id"`
	WarehouseID  *string         `json:"warehouse_id,omitempty"`
	DocumentType string          `json:"document_type,omitempty"`
	Actor        string          `json:"actor,omitempty"`
	Override     bool            `json:"override,omitempty"`
	Lines        []SaleEventLine `json:"lines"`
}

// SaleEventLine línea del evento.
type SaleEventLine struct {
	ArticleID string          `json:"article_id"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (e SaleEvent) sale() *entity.Sale {
	s := &entity.Sale{
		ID:           e.SaleID,
		CompanyID:    e.CompanyID,
		WarehouseID:  e.WarehouseID,
		DocumentType: e.DocumentType,
		Actor:        e.Actor,
		Override:     e.Override,
		Lines:        make([]entity.SaleLine, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		s.Lines = append(s.Lines, entity.SaleLine{ArticleID: l.ArticleID, Unit: l.Unit, Quantity: l.Quantity})
	}
	return s
}

// MessageReader lo que el consumidor usa de *kafka.Reader (commit manual).
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SaleApplier operaciones del ledger que disparan los eventos.
type SaleApplier interface {
	ApplySaleConsumption(ctx context.Context, sale *entity.Sale) ([]*app.MovementResult, error)
	ApplySaleReversal(ctx context.Context, sale *entity.Sale) ([]*app.MovementResult, error)
}

// SaleConsumer lee eventos, los aplica y confirma el offset.
// Los errores de negocio (validación, conflicto) se registran y se confirman: reintentar no los arregla.
// Los errores de infraestructura no confirman y se reintentan tras una espera.
type SaleConsumer struct {
	reader  MessageReader
	applier SaleApplier
	log     zerolog.Logger
	backoff time.Duration
}

// NewSaleConsumer construye el consumidor.
func NewSaleConsumer(reader MessageReader, applier SaleApplier, log zerolog.Logger) *SaleConsumer {
	return &SaleConsumer{
		reader:  reader,
		applier: applier,
		log:     log.With().Str("component", "sale_consumer").Logger(),
		backoff: 2 * time.Second,
	}
}

// NewReader lector Kafka del tópico de ventas con grupo de consumidores.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.SalesTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Run procesa mensajes hasta que ctx se cancela. Devuelve nil en cierre ordenado.
func (c *SaleConsumer) Run(ctx context.Context) error {
	c.log.Info().Msg("consumidor de ventas iniciado")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		for {
			err = c.Handle(ctx, msg)
			if err == nil {
				break
			}
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("evento de venta no aplicado, se reintenta")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

// Handle aplica un mensaje. Solo devuelve error cuando vale la pena reintentar.
func (c *SaleConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier[h.Key] = string(h.Value)
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx, span := otel.Tracer("github.com/jhoicas/inventario-kardex/internal/infrastructure/messaging").
		Start(ctx, "sale_consumer.handle")
	defer span.End()

	log := c.log.With().Int("partition", msg.Partition).Int64("offset", msg.Offset).Logger()

	var ev SaleEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Error().Err(err).Bytes("raw", msg.Value).Msg("evento de venta con JSON inválido, se descarta")
		return nil
	}
	span.SetAttributes(attribute.String("sale.id", ev.SaleID), attribute.String("event.type", ev.Type))
	log = log.With().Str("sale_id", ev.SaleID).Str("type", ev.Type).Logger()

	var (
		results []*app.MovementResult
		err     error
	)
	switch ev.Type {
	case EventSaleCommitted:
		results, err = c.applier.ApplySaleConsumption(ctx, ev.sale())
	case EventSaleCancelled:
		results, err = c.applier.ApplySaleReversal(ctx, ev.sale())
	default:
		log.Warn().Msg("tipo de evento desconocido, se ignora")
		return nil
	}
	if err != nil {
		if errors.Is(err, domain.ErrBusy) {
			log.Warn().Err(err).Msg("saldo ocupado, se reintenta")
			return err
		}
		if k := domain.KindOf(err); k == domain.KindValidation || k == domain.KindConflict || k == domain.KindNotFound {
			log.Error().Err(err).Str("kind", string(k)).Msg("evento de venta rechazado, se descarta")
			return nil
		}
		span.RecordError(err)
		return err
	}
	log.Info().Int("movements", len(results)).Msg("evento de venta aplicado")
	return nil
}

// Close cierra el lector.
func (c *SaleConsumer) Close() error {
	if err := c.reader.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
