package service

import (
	"context"
	"testing"

	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorModels(t *testing.T) {
	s := NewSelector(nil)
	assert.Equal(t, []string{"dynamic", "graduated", "package", "percentage", "standard", "volume"}, s.Models())
}

func TestSelectorSelect(t *testing.T) {
	s := NewSelector(NewGrouped(2))
	props := chargedomain.ChargeProperties{Amount: dp("1.00")}

	plain, err := s.Select(chargedomain.Standard, false)
	require.NoError(t, err)
	fees, err := plain.Evaluate(context.Background(), props, usage("10"), usd)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, int64(1000), fees[0].AmountCents)
	assert.Nil(t, fees[0].GroupedBy)

	grouped, err := s.Select(chargedomain.Standard, true)
	require.NoError(t, err)
	fees, err = grouped.Evaluate(context.Background(), props, regionAggregation(), usd)
	require.NoError(t, err)
	require.Len(t, fees, 2)
}

func TestSelectorUnknownModel(t *testing.T) {
	s := NewSelector(nil)

	_, err := s.Select(chargedomain.ChargeModelType("graduated_percentage"), false)
	assert.ErrorIs(t, err, chargedomain.ErrUnknownChargeModel)

	_, err = s.Model(chargedomain.ChargeModelType(""))
	assert.ErrorIs(t, err, chargedomain.ErrUnknownChargeModel)
}

func TestSelectorEveryModelIsReachable(t *testing.T) {
	s := NewSelector(nil)
	for _, name := range s.Models() {
		m, err := s.Model(chargedomain.ChargeModelType(name))
		require.NoError(t, err)
		assert.Equal(t, name, string(m.Type()))
	}
}
