// Package httpx tem os helpers de resposta JSON usados pelos handlers e
// middlewares do gateway.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody é o corpo padrão de erro: {"error": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON grava v como JSON com o status informado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}
