package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

func validRequest() CalculationRequest {
	return CalculationRequest{
		Items: []OrderItem{
			{Name: "Jacket", UnitPrice: decimal.RequireFromString("89.00"), Quantity: 1, HSCode: "6201.40"},
		},
		Destination:  Destination{CountryCode: "de", PostalCode: "10115"},
		Customer:     Customer{Type: CustomerIndividual},
		Currency:     valueobject.EUR,
		DeliveryMode: shared.DeliveryModeDDP,
		Options:      DefaultOptions(),
	}
}

func TestCalculationRequest_Validate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		assert.Empty(t, validRequest().Validate())
	})

	t.Run("one error per violation", func(t *testing.T) {
		req := validRequest()
		req.Items = []OrderItem{
			{Name: "", UnitPrice: decimal.Zero, Quantity: 0},
		}
		req.Destination.CountryCode = "Germany"
		req.DeliveryMode = "CIF"

		errs := req.Validate()
		codes := make([]string, 0, len(errs))
		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			assert.Equal(t, shared.CategoryValidation, e.Category)
			codes = append(codes, e.Code)
			fields = append(fields, e.Field)
		}
		assert.Len(t, errs, 5)
		assert.Contains(t, fields, "items[0].name")
		assert.Contains(t, fields, "items[0].unitPrice")
		assert.Contains(t, fields, "items[0].quantity")
		assert.Contains(t, codes, shared.CodeInvalidDestination)
		assert.Contains(t, codes, shared.CodeInvalidDeliveryMode)
	})

	t.Run("empty items", func(t *testing.T) {
		req := validRequest()
		req.Items = nil
		errs := req.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, shared.CodeEmptyItems, errs[0].Code)
	})

	t.Run("negative price", func(t *testing.T) {
		req := validRequest()
		req.Items[0].UnitPrice = decimal.NewFromInt(-5)
		assert.Len(t, req.Validate(), 1)
	})
}

func TestCalculationRequest_Normalize(t *testing.T) {
	req := validRequest()
	req.DeliveryMode = ""
	req.Currency = ""
	n := req.Normalize()

	assert.Equal(t, "DE", n.Destination.CountryCode)
	assert.True(t, n.Destination.IsEU)
	assert.Equal(t, shared.DeliveryModeDAP, n.DeliveryMode)
	assert.Equal(t, valueobject.DefaultCurrency, n.Currency)
	assert.Equal(t, "620140", n.Items[0].HSCode)
	assert.Equal(t, "6201.40", req.Items[0].HSCode, "normalize must not mutate the caller's items")
}

func TestCalculationRequest_Fingerprint(t *testing.T) {
	a := validRequest()
	b := validRequest()
	b.Items[0].UnitPrice = decimal.RequireFromString("89")
	b.Destination.CountryCode = "DE"
	b.Items[0].HSCode = "620140"
	b.Options.UseCache = false

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "equal content must share an identifier")
	assert.Equal(t, a.Fingerprint(), a.Fingerprint())

	c := validRequest()
	c.DeliveryMode = shared.DeliveryModeDAP
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	d := validRequest()
	d.Items[0].Quantity = 2
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestCalculationRequest_RecipientID(t *testing.T) {
	req := validRequest().Normalize()
	assert.Equal(t, "DE//10115", req.RecipientID())
	req.Customer.ID = "cust-9"
	assert.Equal(t, "cust-9", req.RecipientID())
}

func TestOrderItem_TotalValue(t *testing.T) {
	item := OrderItem{UnitPrice: decimal.RequireFromString("25"), Quantity: 2}
	assert.True(t, item.TotalValue().Equal(decimal.NewFromInt(50)))
}
