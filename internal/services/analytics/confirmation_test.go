package analytics

import (
	"testing"

	"ZonePulse/internal/domain/models"
)

func testZone() *models.Zone {
	return &models.Zone{
		ID:          1,
		Type:        models.ZoneSupport,
		Center:      100,
		Low:         99.5,
		High:        100.5,
		ConfirmedTF: make(map[string]bool),
	}
}

func bookLevels(prices []float64, size float64) []models.PriceLevel {
	out := make([]models.PriceLevel, len(prices))
	for i, p := range prices {
		out[i] = models.PriceLevel{Price: p, Qty: size}
	}
	return out
}

func TestConfirmOrderBookStrongWall(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()
	// Heavy bids stacked inside the band against a thin book elsewhere.
	ob := models.OrderBookSnapshot{
		Bids: []models.PriceLevel{
			{Price: 100.2, Qty: 50},
			{Price: 100.0, Qty: 50},
			{Price: 99.8, Qty: 50},
			{Price: 98.0, Qty: 1},
			{Price: 97.0, Qty: 1},
		},
		Asks: bookLevels([]float64{102, 103, 104, 105, 106}, 1),
	}

	e.ConfirmOrderBook(z, ob)
	if z.OrderBookStrength == nil {
		t.Fatal("order-book strength not set")
	}
	// 150 in band against a mean level of 15.7 clamps at 3x, normalized to 1.
	if *z.OrderBookStrength != 1 {
		t.Fatalf("strength = %v, want 1", *z.OrderBookStrength)
	}
}

func TestConfirmOrderBookWeakSignalStaysUnset(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()
	// Band liquidity is thinner than the typical level: strength under 0.3.
	ob := models.OrderBookSnapshot{
		Bids: append(bookLevels([]float64{100.0}, 5), bookLevels([]float64{98, 97, 96, 95}, 10)...),
		Asks: bookLevels([]float64{102, 103, 104, 105, 106}, 10),
	}

	e.ConfirmOrderBook(z, ob)
	if z.OrderBookStrength != nil {
		t.Fatalf("strength = %v, want unset", *z.OrderBookStrength)
	}
}

func TestConfirmOrderBookEmptyBook(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()
	e.ConfirmOrderBook(z, models.OrderBookSnapshot{})
	if z.OrderBookStrength != nil {
		t.Fatal("strength set on empty book")
	}
}

func TestConfirmVolumeElevatedTouches(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()

	// Baseline volume 10, touching candles trade 40.
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = flatCandle(i, 102)
	}
	for _, i := range []int{5, 15, 25} {
		candles[i] = flatCandle(i, 100)
		candles[i].Volume = 40
	}

	e.ConfirmVolume(z, candles)
	if z.VolumeStrength == nil {
		t.Fatal("volume strength not set")
	}
	if *z.VolumeStrength != 1 {
		t.Fatalf("strength = %v, want 1 (clamped)", *z.VolumeStrength)
	}
}

func TestConfirmVolumeNoTouches(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = flatCandle(i, 102)
	}
	e.ConfirmVolume(z, candles)
	if z.VolumeStrength != nil {
		t.Fatal("strength set without touches")
	}
}

func TestConfirmVolumeTooFewCandles(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()
	candles := []models.Candle{flatCandle(0, 100), flatCandle(1, 100)}
	e.ConfirmVolume(z, candles)
	if z.VolumeStrength != nil {
		t.Fatal("strength set on tiny window")
	}
}

func TestConfirmTimeframes(t *testing.T) {
	e := NewConfirmationEngine()
	z := testZone()

	touching := make([]models.Candle, 20)
	for i := range touching {
		low := 102.0
		if i == 5 || i == 12 {
			low = 100
		}
		touching[i] = flatCandle(i, low)
	}
	away := make([]models.Candle, 20)
	for i := range away {
		away[i] = flatCandle(i, 110)
	}
	short := []models.Candle{flatCandle(0, 100)}

	e.ConfirmTimeframes(z, map[string][]models.Candle{
		"5":  touching,
		"15": away,
		"60": short,
	})

	if !z.ConfirmedTF["5"] {
		t.Fatal("timeframe 5 not confirmed")
	}
	if z.ConfirmedTF["15"] {
		t.Fatal("timeframe 15 wrongly confirmed")
	}
	if v, ok := z.ConfirmedTF["60"]; !ok || v {
		t.Fatalf("timeframe 60 = %v (recorded %v), want explicit false", v, ok)
	}
	if !z.AnyConfirmedTF() {
		t.Fatal("AnyConfirmedTF = false, want true")
	}
}
