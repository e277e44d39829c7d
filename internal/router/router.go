package routes

import (
	"net/http"

	_ "github.com/oggyb/elk-messaging/internal/docs" // swagger docs
	"github.com/oggyb/elk-messaging/internal/metrics"
	"github.com/oggyb/elk-messaging/internal/response"
	swaggerHandler "github.com/swaggo/http-swagger"
)

type AppDeps struct {
	Home    HomeHandler
	Message MessageHandler
	// Metrics is optional; /metrics is only served when it is set.
	Metrics *metrics.Metrics
}

type HomeHandler interface {
	Index(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
}

type MessageHandler interface {
	Enqueue(w http.ResponseWriter, r *http.Request)
	GetSentMessages(w http.ResponseWriter, r *http.Request)
	GatewayLog(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	StartStopScheduler(w http.ResponseWriter, r *http.Request)
}

func Register(mux *http.ServeMux, d AppDeps) {
	mux.HandleFunc("GET /{$}", d.Home.Index)
	mux.HandleFunc("GET /health", d.Home.Health)

	mux.HandleFunc("POST /messages", d.Message.Enqueue)
	mux.HandleFunc("GET /messages/sent", d.Message.GetSentMessages)
	mux.HandleFunc("GET /messages/gateway", d.Message.GatewayLog)
	mux.HandleFunc("POST /messages/{id}/refresh", d.Message.Refresh)
	mux.HandleFunc("POST /scheduler", d.Message.StartStopScheduler)

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	//Swagger
	mux.HandleFunc("GET /swagger/", swaggerHandler.WrapHandler)

	// Fallback handler for undefined routes (404)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.RespondError(w, http.StatusNotFound, "route not found")
	}))
}
