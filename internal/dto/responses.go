package dto

// PaginationMeta описывает окно пагинации в ответе списков.
type PaginationMeta struct {
	Total           int  `json:"total"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// PaginatedResponse — единый конверт для всех списочных ответов API.
type PaginatedResponse struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse собирает конверт списка с производными полями.
func NewPaginatedResponse(data any, total, page, limit int) PaginatedResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PaginatedResponse{
		Data: data,
		Meta: PaginationMeta{
			Total:           total,
			Page:            page,
			Limit:           limit,
			TotalPages:      totalPages,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}
}

// ErrorResponse — единый формат ошибки API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse — ответ-подтверждение без полезной нагрузки.
type MessageResponse struct {
	Message string `json:"message"`
}

// EstimateResponse — ответ на запрос оценочной стоимости.
// Price равен null, когда похожих одобренных отчётов не нашлось.
type EstimateResponse struct {
	Price *float64 `json:"price"`
}
