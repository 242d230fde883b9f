package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"immersive-exam-service/internal/agent"
	"immersive-exam-service/internal/app"
	"immersive-exam-service/internal/domain"
)

// ExamHandler creates exams over plain HTTP; everything after creation runs
// over the websocket.
type ExamHandler struct {
	service             *app.ExamService
	runner              *agent.Runner // nil disables automated participants
	defaultDistribution domain.DifficultyDistribution
	defaultPerQuestion  time.Duration
}

func NewExamHandler(service *app.ExamService, runner *agent.Runner, defaultDistribution domain.DifficultyDistribution, defaultPerQuestion time.Duration) *ExamHandler {
	return &ExamHandler{
		service:             service,
		runner:              runner,
		defaultDistribution: defaultDistribution,
		defaultPerQuestion:  defaultPerQuestion,
	}
}

type createExamRequest struct {
	DifficultyDistribution map[domain.Difficulty]int `json:"difficultyDistribution"`
	RevealStrategy         domain.RevealStrategy     `json:"revealStrategy"`
	TimePerQuestionSec     int                       `json:"timePerQuestionSeconds"`
}

type createExamResponse struct {
	ExamID string `json:"examId"`
}

// ServeCreate handles POST /exams.
func (h *ExamHandler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cfg := domain.ExamConfig{
		Distribution:    domain.DifficultyDistribution(req.DifficultyDistribution),
		RevealStrategy:  req.RevealStrategy,
		TimePerQuestion: h.defaultPerQuestion,
	}
	if len(cfg.Distribution) == 0 {
		cfg.Distribution = h.defaultDistribution
	}
	if req.TimePerQuestionSec > 0 {
		cfg.TimePerQuestion = time.Duration(req.TimePerQuestionSec) * time.Second
	}

	examID, err := h.service.CreateExam(r.Context(), cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.runner != nil {
		// The runner answers for automated participants for the exam's whole
		// lifetime, so it cannot be tied to the request context.
		go func() { _ = h.runner.Run(context.Background(), examID) }()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(createExamResponse{ExamID: examID})
}
