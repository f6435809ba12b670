package checkout

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"checkout-gateway/internal/httpx"
	"checkout-gateway/internal/securitylog"
	"checkout-gateway/internal/validation"
)

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			s.security.InvalidRequest(s.ipFn(r), r.URL.Path, "Token de administração inválido", r.UserAgent())
			httpx.WriteError(w, http.StatusUnauthorized, "Não autorizado")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) securityReport(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.security.Report())
}

type eventsResponse struct {
	Events  []securitylog.Event  `json:"events"`
	Verdict *securitylog.Verdict `json:"verdict,omitempty"`
}

// securityEvents filtra por ?ip= ou ?type= (ip vence) com ?limit= opcional.
// Filtrando por IP a resposta inclui o veredito do detector.
func (s *server) securityEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var resp eventsResponse
	switch ip, kind := q.Get("ip"), q.Get("type"); {
	case ip != "":
		resp.Events = s.security.ByIP(ip, limit)
		v := s.security.DetectSuspiciousPatterns(ip)
		resp.Verdict = &v
	case kind != "":
		resp.Events = s.security.ByKind(securitylog.Kind(kind), limit)
	default:
		resp.Events = s.security.Recent(limit)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *server) paymentIntentSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	httpx.WriteJSON(w, http.StatusOK, validation.PaymentIntentSchema())
}
