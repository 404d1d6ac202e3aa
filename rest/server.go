package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/logger"
	"github.com/nishant-bin/neuranet/metadata"
	"github.com/nishant-bin/neuranet/retrieval"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port      int
	engine    *engine.Engine
	flows     metadata.Service
	knowledge *retrieval.MemoryStore
}

func NewServer(httpPort int, eng *engine.Engine, flows metadata.Service, knowledge *retrieval.MemoryStore) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:      httpPort,
		engine:    eng,
		flows:     flows,
		knowledge: knowledge,
	}

	router := mux.NewRouter()
	router.HandleFunc("/answer", s.HandleAnswer).Methods(http.MethodPost)
	router.HandleFunc("/chat", s.HandleChat).Methods(http.MethodPost)
	router.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)

	router.HandleFunc("/metadata/flow", s.HandleSaveFlow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/flow/{name}", s.HandleGetFlow).Methods(http.MethodGet)

	router.HandleFunc("/knowledge/{brainId}/documents", s.HandleAddDocument).Methods(http.MethodPost)
	router.HandleFunc("/knowledge/{brainId}/documents/{docId}", s.HandleDeleteDocument).Methods(http.MethodDelete)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"status": "up"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
