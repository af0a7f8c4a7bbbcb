package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// BidResponse is the JSON representation of a bid.
type BidResponse struct {
	ID          string   `json:"id"`
	PostedDate  string   `json:"posted_date"`
	DueDate     string   `json:"due_date"`
	Title       string   `json:"title"`
	Quantity    string   `json:"quantity"`
	Description string   `json:"description"`
	Documents   []string `json:"documents"`
	BidLink     string   `json:"bid_link"`
	Portal      string   `json:"portal"`
}

// RunResultResponse is the JSON representation of a scrape run summary.
type RunResultResponse struct {
	RunID      string        `json:"run_id"`
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	NewBids    int           `json:"new_bids"`
	TotalBids  int           `json:"total_bids"`
	Errors     []string      `json:"errors"`
	Bids       []BidResponse `json:"bids"`
	StartedAt  string        `json:"started_at"`
	DurationMS int64         `json:"duration_ms"`
}

// StatusResponse is the JSON representation of the scheduler status.
type StatusResponse struct {
	IsRunning bool   `json:"is_running"`
	Schedule  string `json:"schedule"`
}

// TodayResponse reports the number of bids stored today.
type TodayResponse struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

// CredentialResponse is the JSON representation of a portal credential.
// The password is reduced to a flag.
type CredentialResponse struct {
	ID          int64  `json:"id"`
	PortalType  string `json:"portal_type"`
	PortalName  string `json:"portal_name"`
	URL         string `json:"url"`
	Username    string `json:"username"`
	HasPassword bool   `json:"has_password"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateCredentialRequest is the JSON body for the create credential endpoint.
// IsActive defaults to true when omitted.
type CreateCredentialRequest struct {
	PortalType string `json:"portal_type"`
	PortalName string `json:"portal_name"`
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	IsActive   *bool  `json:"is_active"`
}

// UpdateCredentialRequest is the JSON body for the update credential endpoint.
// Nil fields are left unchanged.
type UpdateCredentialRequest struct {
	PortalType *string `json:"portal_type"`
	PortalName *string `json:"portal_name"`
	URL        *string `json:"url"`
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	IsActive   *bool   `json:"is_active"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toBidResponse(b model.Bid) BidResponse {
	docs := b.Documents
	if docs == nil {
		docs = []string{}
	}

	return BidResponse{
		ID:          b.ID,
		PostedDate:  b.PostedDate.Format(time.RFC3339),
		DueDate:     b.DueDate.Format(time.RFC3339),
		Title:       b.Title,
		Quantity:    b.Quantity,
		Description: b.Description,
		Documents:   docs,
		BidLink:     b.BidLink,
		Portal:      b.Portal,
	}
}

func toRunResultResponse(r model.RunResult) RunResultResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}

	bids := make([]BidResponse, 0, len(r.Bids))
	for _, b := range r.Bids {
		bids = append(bids, toBidResponse(b))
	}

	return RunResultResponse{
		RunID:      r.RunID,
		Success:    r.Success,
		Message:    r.Message,
		NewBids:    r.NewBids,
		TotalBids:  r.TotalBids,
		Errors:     errs,
		Bids:       bids,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		DurationMS: r.Duration.Milliseconds(),
	}
}

func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		ID:          c.ID,
		PortalType:  string(c.PortalType),
		PortalName:  c.PortalName,
		URL:         c.URL,
		Username:    c.Username,
		HasPassword: c.Password != "",
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
