// Package handlers implements flightcore's REST handlers: auth, vessels,
// flights, and commands.
package handlers

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 "problem details" response body.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response with type "about:blank".
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	WriteProblemWithType(w, "about:blank", status, title, detail)
}

// WriteProblemWithType writes an RFC 7807 problem response with a custom
// type URI.
func WriteProblemWithType(w http.ResponseWriter, problemType string, status int, title, detail string) {
	problem := &Problem{Type: problemType, Title: title, Status: status, Detail: detail}
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// AuthMissing writes a 401 for a missing bearer token.
func AuthMissing(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Authentication Required", detail)
}

// AuthInvalid writes a 401 for a bearer token that failed validation.
func AuthInvalid(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Invalid Token", detail)
}

// TokenExpired writes a 401 for an expired code or token.
func TokenExpired(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Token Expired", detail)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// InvalidPayload writes a 400 for schema-validation failures.
func InvalidPayload(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Invalid Payload", detail)
}

// Forbidden writes a 403 Forbidden problem response.
func Forbidden(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusForbidden, "Forbidden", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// Conflict writes a 400 Conflict problem response. flightcore registers a
// unique-name collision as a client error rather than 409, matching the
// taxonomy in the external interface contract.
func Conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Conflict", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONCreated writes a 201 Created JSON response.
func WriteJSONCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
