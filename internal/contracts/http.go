package contracts

import "time"

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type TriggerRunRequest struct {
	Trigger string `json:"trigger,omitempty"`
}

type ApproveEarningRequest struct {
	ApprovedBy string `json:"approved_by"`
}

type ScheduleReleaseRequest struct {
	ReleaseAt time.Time `json:"release_at"`
}
