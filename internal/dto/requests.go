package dto

// SignupRequest — тело запроса регистрации.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SigninRequest — тело запроса входа.
type SigninRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest — тело запроса на сброс пароля.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest — тело запроса установки нового пароля по токену.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateReportRequest — тело запроса публикации отчёта.
type CreateReportRequest struct {
	Make    string   `json:"make" binding:"required"`
	Model   string   `json:"model" binding:"required"`
	Year    int      `json:"year" binding:"required"`
	Mileage int      `json:"mileage"`
	Price   float64  `json:"price" binding:"required"`
	Lng     float64  `json:"lng" binding:"required"`
	Lat     float64  `json:"lat" binding:"required"`
	Tags    []string `json:"tags"`
}

// ApproveRequest — решение модерации по отчёту.
type ApproveRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// AddTagsRequest — привязка тегов по именам.
type AddTagsRequest struct {
	Tags []string `json:"tags" binding:"required,min=1"`
}

// RemoveTagsRequest — снятие привязки тегов по именам.
type RemoveTagsRequest struct {
	Tags []string `json:"tags" binding:"required,min=1"`
}
