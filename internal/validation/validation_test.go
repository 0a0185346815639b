package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/storecore/internal/apperr"
)

type productInput struct {
	Name  string          `json:"name" validate:"required,min=3,max=200"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
	Stock int             `json:"stock" validate:"gte=0"`
}

func TestStruct_CollectsEveryField(t *testing.T) {
	err := Struct(productInput{Name: "ab", Price: decimal.RequireFromString("-1.00"), Stock: -2})
	require.ErrorIs(t, err, apperr.ErrValidation)

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 3)

	byField := map[string]apperr.FieldError{}
	for _, f := range verr.Fields {
		byField[f.Field] = f
	}
	assert.Equal(t, "min", byField["name"].Rule)
	assert.Equal(t, "name must be at least 3 characters", byField["name"].Message)
	assert.Equal(t, "gte", byField["price"].Rule)
	assert.Equal(t, "gte", byField["stock"].Rule)
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(productInput{Name: "Cola", Price: decimal.Zero}))
}

func TestStruct_Required(t *testing.T) {
	err := Struct(productInput{Price: decimal.NewFromInt(1)})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "required", verr.Fields[0].Rule)
	assert.Equal(t, "name is required", verr.Fields[0].Message)
}
