package checkout

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	placeholderWidth     = 300
	placeholderHeight    = 200
	placeholderMaxWidth  = 1200
	placeholderMaxHeight = 800
)

// placeholder gera a imagem cinza dos produtos sem foto:
// /api/placeholder/{largura}/{altura}, com limites para evitar abuso.
func (s *server) placeholder(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(chi.URLParam(r, "*"), "/"), "/")
	width := dimension(parts, 0, placeholderWidth, placeholderMaxWidth)
	height := dimension(parts, 1, placeholderHeight, placeholderMaxHeight)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)

	cx, cy := width/2, height/2
	fmt.Fprintf(w, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, width, height)
	fmt.Fprint(w, `<rect width="100%" height="100%" fill="#f3f4f6"/>`)
	fmt.Fprintf(w, `<rect x="20" y="20" width="%d" height="%d" fill="#e5e7eb" rx="8"/>`, max(width-40, 0), max(height-40, 0))
	fmt.Fprintf(w, `<circle cx="%d" cy="%d" r="30" fill="#9ca3af"/>`, cx, cy-20)
	fmt.Fprintf(w, `<rect x="%d" y="%d" width="80" height="8" fill="#9ca3af" rx="4"/>`, cx-40, cy+20)
	fmt.Fprintf(w, `<rect x="%d" y="%d" width="60" height="6" fill="#d1d5db" rx="3"/>`, cx-30, cy+35)
	fmt.Fprintf(w, `<text x="%d" y="%d" text-anchor="middle" fill="#6b7280" font-family="system-ui, sans-serif" font-size="12">%d × %d</text>`,
		cx, height-15, width, height)
	fmt.Fprint(w, `</svg>`)
}

// dimension lê parts[i]; ausente ou inválido usa def, e nunca passa de limit.
func dimension(parts []string, i, def, limit int) int {
	n := def
	if i < len(parts) {
		if v, err := strconv.Atoi(parts[i]); err == nil && v > 0 {
			n = v
		}
	}
	return min(n, limit)
}
