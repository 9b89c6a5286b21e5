package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const maxJSONBody = 64 << 10 // 64KB

// ReadStrictJSON decodifica el body con DisallowUnknownFields y límite
// de tamaño; escribe el error y devuelve false si algo no cierra.
func ReadStrictJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, ErrBadRequest.WithDetail("se requiere Content-Type: application/json"))
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "json inválido"
		if err == io.EOF {
			msg = "body vacío"
		}
		WriteError(w, ErrInvalidJSON.WithDetail(msg))
		return false
	}
	if dec.More() {
		WriteError(w, ErrInvalidJSON.WithDetail("sobran datos en el body"))
		return false
	}
	return true
}

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
