package inventory_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

func newFulfillment(t *testing.T) (*memStore, *app.FulfillmentUseCase) {
	t.Helper()
	s, ledger := newLedger()
	s.product("A")
	s.product("B")
	s.addArticle(&entity.Article{ID: "K", StockControlled: true, Components: []entity.Component{
		{ArticleID: "A", Quantity: dec("2")},
		{ArticleID: "B", Quantity: dec("1")},
	}})
	s.addArticle(&entity.Article{ID: "SRV", IsService: true})
	receive(t, ledger, "A", "10")
	receive(t, ledger, "B", "3")
	return s, app.NewFulfillmentUseCase(&memArticles{s.pool()}, &memBalances{s.pool()}, zerolog.Nop())
}

func fl(articleID, qty string) app.FulfillmentLine {
	return app.FulfillmentLine{ArticleID: articleID, Unit: "UND", Quantity: dec(qty)}
}

func TestCanFulfill_TodoDisponible(t *testing.T) {
	_, uc := newFulfillment(t)

	res, err := uc.CanFulfill(context.Background(), company, nil, []app.FulfillmentLine{fl("A", "4"), fl("SRV", "2")})
	require.NoError(t, err)

	assert.True(t, res.OK)
	require.Len(t, res.Lines, 2)
	assert.True(t, dec("4").Equal(res.Lines[0].Required))
	assert.True(t, dec("10").Equal(res.Lines[0].Available))
	assert.True(t, res.Lines[0].Shortage.IsZero())
	assert.True(t, res.Lines[1].Fulfillable, "los servicios siempre se pueden despachar")
}

func TestCanFulfill_FaltanteYArticuloInexistente(t *testing.T) {
	_, uc := newFulfillment(t)

	res, err := uc.CanFulfill(context.Background(), company, nil, []app.FulfillmentLine{fl("B", "5"), fl("NOPE", "1")})
	require.NoError(t, err, "los problemas de negocio se reportan, no fallan")

	assert.False(t, res.OK)
	assert.Equal(t, app.ReasonInsufficientStock, res.Lines[0].Reason)
	assert.True(t, dec("2").Equal(res.Lines[0].Shortage))
	assert.Equal(t, app.ReasonArticleNotFound, res.Lines[1].Reason)
}

func TestCanFulfill_ComboPorComponente(t *testing.T) {
	_, uc := newFulfillment(t)

	res, err := uc.CanFulfill(context.Background(), company, nil, []app.FulfillmentLine{fl("K", "4")})
	require.NoError(t, err)

	assert.False(t, res.OK)
	l := res.Lines[0]
	require.Len(t, l.Components, 2)
	assert.True(t, l.Components[0].Fulfillable, "8 A de 10 disponibles")
	assert.False(t, l.Components[1].Fulfillable, "4 B de 3 disponibles")
	assert.True(t, dec("1").Equal(l.Components[1].Shortage))
	assert.Equal(t, app.ReasonInsufficientStock, l.Reason)
}

func TestCanFulfill_LineasCompartenSaldo(t *testing.T) {
	_, uc := newFulfillment(t)

	// El combo consume 6 A; la segunda línea pide 5 A más y solo quedan 4.
	res, err := uc.CanFulfill(context.Background(), company, nil, []app.FulfillmentLine{fl("K", "3"), fl("A", "5")})
	require.NoError(t, err)

	assert.True(t, res.Lines[0].Fulfillable)
	assert.False(t, res.Lines[1].Fulfillable)
	assert.True(t, dec("4").Equal(res.Lines[1].Available))
	assert.False(t, res.OK)
}

func TestCanFulfill_CantidadInvalidaYBodegaSinSaldo(t *testing.T) {
	_, uc := newFulfillment(t)

	res, err := uc.CanFulfill(context.Background(), company, nil, []app.FulfillmentLine{fl("A", "1.5")})
	require.NoError(t, err)
	assert.Equal(t, app.ReasonInvalidQuantity, res.Lines[0].Reason)

	res, err = uc.CanFulfill(context.Background(), company, strPtr("w9"), []app.FulfillmentLine{fl("A", "1")})
	require.NoError(t, err)
	assert.False(t, res.OK, "la bodega w9 no tiene saldo")
	assert.True(t, res.Lines[0].Available.IsZero())

	_, err = uc.CanFulfill(context.Background(), "", nil, nil)
	assert.Error(t, err)
}
