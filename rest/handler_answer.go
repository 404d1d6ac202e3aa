package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nishant-bin/neuranet/model"
)

type answerRequest struct {
	model.ExecutionRequest
	SessionId string `json:"sessionId,omitempty"`
}

func (s *Server) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	if err := validateRequest(req.ExecutionRequest); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.engine.Answer(r.Context(), req.ExecutionRequest)
	respondWithResult(w, result)
}

func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	if err := validateRequest(req.ExecutionRequest); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.engine.AnswerChat(r.Context(), req.ExecutionRequest, req.SessionId)
	respondWithResult(w, result)
}

// respondWithResult maps the failure taxonomy onto http status codes.
// The body is always the full result, status is advisory.
func respondWithResult(w http.ResponseWriter, result model.Result) {
	status := http.StatusOK
	if !result.Ok {
		switch result.Reason {
		case model.REASON_VALIDATION, model.REASON_BAD_MODEL:
			status = http.StatusBadRequest
		case model.REASON_LIMIT:
			status = http.StatusTooManyRequests
		case model.REASON_NOKNOWLEDGE:
			status = http.StatusOK
		default:
			status = http.StatusInternalServerError
		}
	}
	respondWithJSON(w, status, result)
}

func validateRequest(req model.ExecutionRequest) error {
	if len(req.Identity) == 0 || len(req.Org) == 0 {
		return fmt.Errorf("identity and org are required")
	}
	if len(req.ApplicationId) == 0 || len(req.FlowName) == 0 {
		return fmt.Errorf("applicationId and flowName are required")
	}
	return nil
}
