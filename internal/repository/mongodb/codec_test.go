package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/supplychain/internal/domain/models"
)

func TestDecimalCodecKeepsPrecision(t *testing.T) {
	reg := newRegistry()
	sale := models.Sale{ID: "s1", TotalAmount: decimal.RequireFromString("100.10"), PaidAmount: decimal.RequireFromString("0.30")}

	raw, err := bson.MarshalWithRegistry(reg, sale)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, "100.1", doc["total_amount"])

	var decoded models.Sale
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &decoded))
	assert.True(t, decoded.TotalAmount.Equal(sale.TotalAmount))
	assert.True(t, decoded.PaidAmount.Equal(sale.PaidAmount))
}
