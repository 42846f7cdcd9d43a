// Package respond centralizes HTTP response writing so every handler emits the
// same envelope: {success, message, data} on success and the apperror failure
// envelope otherwise.
package respond

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/blogplatform-go/apperror"
)

// Envelope is the success response body shared by all endpoints.
type Envelope struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message" example:"Success"`
	Data    interface{} `json:"data"`
}

// JSON serializes data and writes it with the given status.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; all we can do is record it.
		log.Printf("failed to encode response: %v", err)
	}
}

// Success writes a success envelope.
func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	if message == "" {
		message = "Success"
	}
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Error converts any error into the failure envelope. 5xx errors are logged with
// their underlying cause and the request id; the client only sees the message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.FromError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, appErr)
	}
	JSON(w, appErr.StatusCode(), appErr.ToResponse())
}

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperror.NewBadRequestError("invalid request body: "+err.Error(), err)
	}
	return nil
}
