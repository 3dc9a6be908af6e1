package models

// Requests for optimization HTTP endpoints.

type OptimizationRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
	Period string `query:"period" json:"period" default:"12mo" validate:"required,period"`
}

type RefreshRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
	Period string `query:"period" json:"period" default:"12mo" validate:"required,period"`
	Async  bool   `query:"async" json:"async"`
}

type SeriesRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
	Period string `query:"period" json:"period" default:"12mo" validate:"required,period"`
	Limit  int    `query:"limit" json:"limit" default:"0" validate:"gte=0,lte=5000"`
}
