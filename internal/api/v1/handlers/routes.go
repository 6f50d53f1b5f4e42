package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	v1chat "github.com/regscout/regscout/internal/api/v1/handlers/chat"
	v1ws "github.com/regscout/regscout/internal/api/v1/handlers/websocket"
	v1mware "github.com/regscout/regscout/internal/api/v1/middleware"
	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/internal/connections"
	"github.com/regscout/regscout/internal/services"
)

// RegisterRoutes mounts the chat page, the health check and the v1 API.
func RegisterRoutes(router *mux.Router, services *services.Services, manager *connections.Manager, rateLimit config.RateLimitConfig) {
	router.HandleFunc("/", HandleIndex).Methods("GET")
	router.HandleFunc("/healthz", HandleHealth).Methods("GET")

	RegisterV1Routes(router, services, manager, rateLimit)
}

func RegisterV1Routes(router *mux.Router, services *services.Services, manager *connections.Manager, rateLimit config.RateLimitConfig) {
	// v1 routes
	v1 := router.PathPrefix("/v1").Subrouter()

	// One chat budget per session across REST and websocket sends
	chatLimiter := v1mware.NewLimiter(rateLimit, rateLimit.Chat)
	// Widget loads start sessions and threads, limited per client address
	widgetLimiter := v1mware.NewLimiter(rateLimit, rateLimit.Widget)

	// Public v1 routes (no session required)
	v1publicRouter := v1.NewRoute().Subrouter()
	v1publicRouter.Handle("/widget.js", widgetLimiter.Middleware("widget")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleWidgetJS(services.GetSessionService(), w, r)
	}))).Methods("GET")
	v1publicRouter.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleDeleteSession(services.GetSessionService(), w, r)
	}).Methods("DELETE")
	v1publicRouter.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		v1ws.HandleChatWebSocket(services.GetChatService(), services.GetSessionService(), manager, chatLimiter, w, r)
	}).Methods("GET")

	// Session v1 routes (require the widget session cookie)
	v1sessionRouter := v1.NewRoute().Subrouter()
	v1sessionRouter.Use(v1mware.RequireSession(services.GetSessionService()))

	v1sessionRouter.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleGetMessages(services.GetChatService(), w, r)
	}).Methods("GET")
	v1sessionRouter.Handle("/messages", chatLimiter.Middleware("chat_message")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandlePostMessage(services.GetChatService(), w, r)
	}))).Methods("POST")
}
