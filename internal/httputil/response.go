// Package httputil holds the JSON envelope shared by the twin API and its
// clients, and an HTTP client abstraction for testability.
//
// Every JSON response carries "ok". Successful responses add named fields
// next to it; failures add "error".
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is a JSON response body.
type Envelope map[string]interface{}

// WriteJSONError writes {"ok": false, "error": msg} with the given status.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{"ok": false, "error": msg})
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

// WriteOK writes a 200 envelope with ok set and fields merged in.
func WriteOK(w http.ResponseWriter, fields Envelope) {
	body := Envelope{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// WriteJSONOK writes a 200 envelope with a single named field.
func WriteJSONOK(w http.ResponseWriter, key string, data interface{}) {
	WriteOK(w, Envelope{key: data})
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// BadRequest writes a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, msg)
}

// InternalServerError writes a 500 Internal Server Error response.
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusNotFound, msg)
}

// Conflict writes a 409 Conflict response.
func Conflict(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusConflict, msg)
}
