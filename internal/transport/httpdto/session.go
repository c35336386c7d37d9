package httpdto

type CreateSessionRequest struct {
	CounterpartID string `json:"counterpart_id" binding:"required"`
}
