package payment

type OpenSessionRequest struct {
	AppointmentID int64 `json:"appointment_id" validate:"required,gt=0"`
}

type SubmitRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type VerifyRequest struct {
	Receipt string `json:"receipt"`
}

// SessionResponse is a snapshot plus the actions the session currently allows.
type SessionResponse struct {
	Snapshot
	CanRetry  bool `json:"can_retry"`
	CanManual bool `json:"can_manual"`
}

func NewSessionResponse(s Snapshot) SessionResponse {
	return SessionResponse{
		Snapshot:  s,
		CanRetry:  !s.Closed && s.State.CanRetry(),
		CanManual: !s.Closed && s.State != StateSuccess && s.State != StateManual,
	}
}
