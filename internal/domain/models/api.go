package models

// ZonesRequest filters the active-zone listing.
type ZonesRequest struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" default:"1"`
}

// SignalsRequest bounds the recent-signal listing. Symbol is optional and
// filters the list when set.
type SignalsRequest struct {
	Symbol string `query:"symbol"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=256"`
}

// HistoryRequest selects mirrored candle history.
type HistoryRequest struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" default:"1"`
	Limit     int    `query:"limit" default:"200" validate:"gte=1,lte=500"`
}
