package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/logger"
	"github.com/nishant-bin/neuranet/metadata"
	"go.uber.org/zap"
)

type saveFlowRequest struct {
	Identity      string          `json:"identity"`
	Org           string          `json:"org"`
	ApplicationId string          `json:"applicationId"`
	Definition    flow.Definition `json:"definition"`
}

func (s *Server) HandleSaveFlow(w http.ResponseWriter, r *http.Request) {
	var req saveFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	if err := s.flows.SaveFlow(r.Context(), req.Identity, req.Org, req.ApplicationId, req.Definition); err != nil {
		logger.Error("error saving flow", zap.String("name", req.Definition.Name), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"name": req.Definition.Name})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	query := r.URL.Query()
	def, err := s.flows.GetStorage().GetFlowDefinition(r.Context(),
		query.Get("identity"), query.Get("org"), query.Get("applicationId"), name)
	if err != nil {
		var notFound metadata.NotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Error("error loading flow", zap.String("name", name), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error loading flow")
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}
