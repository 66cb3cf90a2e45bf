package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(amount string) Money {
	return Money{Amount: decimal.RequireFromString(amount), Currency: "USD"}
}

func TestCheapestPlacement(t *testing.T) {
	t.Run("first of tied minimum wins", func(t *testing.T) {
		options := []PlacementOption{
			{ID: "po-a", Fees: []Fee{{Type: "placement", Value: usd("10.00")}, {Type: "handling", Value: usd("2.50")}}},
			{ID: "po-b", Fees: []Fee{{Type: "placement", Value: usd("9.00")}}},
			{ID: "po-c", Fees: []Fee{{Type: "placement", Value: usd("4.50")}, {Type: "handling", Value: usd("4.50")}}},
		}

		got, err := CheapestPlacement(options)
		require.NoError(t, err)
		assert.Equal(t, "po-b", got.ID)
		assert.True(t, got.TotalFee().Equal(decimal.RequireFromString("9.00")))
	})

	t.Run("option without fees is free", func(t *testing.T) {
		got, err := CheapestPlacement([]PlacementOption{
			{ID: "po-a", Fees: []Fee{{Value: usd("1.00")}}},
			{ID: "po-free"},
		})
		require.NoError(t, err)
		assert.Equal(t, "po-free", got.ID)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := CheapestPlacement(nil)
		assert.ErrorIs(t, err, ErrNoOption)
	})
}

func TestCheapestPartneredTransport(t *testing.T) {
	price := func(s string) *Money { m := usd(s); return &m }

	t.Run("partnered small parcel beats cheaper non-partnered", func(t *testing.T) {
		options := []TransportOption{
			{ID: "to-own", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionOwn, Quote: price("11.00")},
			{ID: "to-spd", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered, Quote: price("14.00")},
		}

		got, err := CheapestPartneredTransport("sh-1", options)
		require.NoError(t, err)
		assert.Equal(t, "to-spd", got.ID)
	})

	t.Run("cheapest partnered among several", func(t *testing.T) {
		options := []TransportOption{
			{ID: "to-1", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered, Quote: price("20.00")},
			{ID: "to-2", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered, Quote: price("15.00")},
			{ID: "to-other", ShipmentID: "sh-2", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered, Quote: price("1.00")},
		}

		got, err := CheapestPartneredTransport("sh-1", options)
		require.NoError(t, err)
		assert.Equal(t, "to-2", got.ID)
	})

	t.Run("falls back to cheapest overall", func(t *testing.T) {
		options := []TransportOption{
			{ID: "to-ltl", ShipmentID: "sh-1", ShippingMode: ShippingModeLessThanTruck, ShippingSolution: ShippingSolutionPartnered, Quote: price("90.00")},
			{ID: "to-own", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionOwn, Quote: price("30.00")},
		}

		got, err := CheapestPartneredTransport("sh-1", options)
		require.NoError(t, err)
		assert.Equal(t, "to-own", got.ID)
	})

	t.Run("unquoted option ranks after quoted ones", func(t *testing.T) {
		options := []TransportOption{
			{ID: "to-free", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered},
			{ID: "to-2", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered, Quote: price("15.00")},
			{ID: "to-1", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered, Quote: price("12.00")},
		}

		got, err := CheapestPartneredTransport("sh-1", options)
		require.NoError(t, err)
		assert.Equal(t, "to-1", got.ID)
	})

	t.Run("unquoted options only", func(t *testing.T) {
		options := []TransportOption{
			{ID: "to-a", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered},
			{ID: "to-b", ShipmentID: "sh-1", ShippingMode: ShippingModeSmallParcel, ShippingSolution: ShippingSolutionPartnered},
		}

		got, err := CheapestPartneredTransport("sh-1", options)
		require.NoError(t, err)
		assert.Equal(t, "to-a", got.ID)
	})

	t.Run("nothing for this shipment", func(t *testing.T) {
		_, err := CheapestPartneredTransport("sh-9", []TransportOption{{ID: "to-1", ShipmentID: "sh-1"}})
		assert.ErrorIs(t, err, ErrNoOption)
	})
}

func TestEarliestDeliveryWindow(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, time.May, d, 0, 0, 0, 0, time.UTC) }

	windows := []DeliveryWindowOption{
		{ID: "dw-3", ShipmentID: "sh-1", StartDate: day(3), EndDate: day(9)},
		{ID: "dw-1", ShipmentID: "sh-1", StartDate: day(1), EndDate: day(7)},
		{ID: "dw-10", ShipmentID: "sh-1", StartDate: day(10), EndDate: day(16)},
		{ID: "dw-other", ShipmentID: "sh-2", StartDate: day(1).AddDate(0, -1, 0)},
	}

	got, err := EarliestDeliveryWindow("sh-1", windows)
	require.NoError(t, err)
	assert.Equal(t, "dw-1", got.ID)

	_, err = EarliestDeliveryWindow("sh-3", windows)
	assert.ErrorIs(t, err, ErrNoOption)
}
