package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nishant-bin/neuranet/logger"
	"go.uber.org/zap"
)

type addDocumentRequest struct {
	Org      string         `json:"org"`
	DocId    string         `json:"docId,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) HandleAddDocument(w http.ResponseWriter, r *http.Request) {
	brainId := mux.Vars(r)["brainId"]
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	if len(req.Text) == 0 {
		respondWithError(w, http.StatusBadRequest, "text is required")
		return
	}
	docId, err := s.knowledge.AddDocument(r.Context(), req.Org, brainId, req.DocId, req.Text, req.Metadata)
	if err != nil {
		logger.Error("error indexing document", zap.String("brainId", brainId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error indexing document")
		return
	}
	respondOK(w, map[string]any{"docId": docId})
}

func (s *Server) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	org := r.URL.Query().Get("org")
	if err := s.knowledge.DeleteDocument(r.Context(), org, vars["brainId"], vars["docId"]); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondOK(w, map[string]any{"docId": vars["docId"]})
}
