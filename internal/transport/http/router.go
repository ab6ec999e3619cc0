package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wazir-realty/api/internal/application/chat"
	"github.com/wazir-realty/api/internal/application/verify"
	"github.com/wazir-realty/api/internal/config"
	jwtinfra "github.com/wazir-realty/api/internal/infrastructure/jwt"
	"github.com/wazir-realty/api/internal/transport/http/handler"
	appmiddleware "github.com/wazir-realty/api/internal/transport/http/middleware"
	"github.com/wazir-realty/api/internal/transport/ws"
	"golang.org/x/time/rate"
)

// Deps holds the wired application services the router exposes.
type Deps struct {
	VerifySvc   verify.Service
	Hub         *chat.Hub
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10 — initiate triggers real SMS sends.
	// Code validation is intentionally left unlimited; see DESIGN.md.
	initiateRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerifyHandler(deps.VerifySvc)
	chatH := handler.NewChatHandler(deps.Hub)
	wsH := ws.NewHandler(deps.Hub, deps.JWTProvider)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(initiateRL.Limit).Post("/verify/initiate", verifyH.Initiate)
		r.Post("/verify/confirm-contact", verifyH.ConfirmContact)
		r.Post("/verify/validate-code", verifyH.ValidateCode)
		r.Get("/verify/session/{id}", verifyH.SessionStatus)
		r.Get("/verify/status", verifyH.Status)

		// WebSocket clients carry the token in the path.
		r.Get("/ws/chat/{token}", wsH.Chat)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/chat/history/{peer}", chatH.History)
		})
	})

	return r
}
