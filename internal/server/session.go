package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/schema"
	"github.com/abhisek/docquiz/internal/scoring"
	"github.com/abhisek/docquiz/internal/session"
)

// sessionView is a session snapshot as served to clients. Summary is set
// once the session is submitted.
type sessionView struct {
	session.State
	Summary *scoring.Summary `json:"summary,omitempty"`
}

func viewOf(st session.State) sessionView {
	v := sessionView{State: st}
	if st.Submitted() {
		if sum, err := scoring.Score(st.QuestionSet, st.Answers); err == nil {
			v.Summary = &sum
		}
	}
	return v
}

type startRequest struct {
	// QuizData starts a fresh session when present. Without it the
	// stored session is resumed.
	QuizData   json.RawMessage `json:"quizData"`
	Difficulty string          `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

type answerRequest struct {
	OptionIndex *int `json:"optionIndex" binding:"required,min=0"`
}

type submitRequest struct {
	FromLast bool `json:"fromLast"`
}

// startSession handles POST /api/session.
func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength != 0 {
		if !bind(c, &req) {
			return
		}
	}
	ctx := c.Request.Context()

	if len(req.QuizData) == 0 {
		if s.deps.Persistence == nil {
			s.respondError(c, errNoSession)
			return
		}
		s.lifecycle.Lock()
		defer s.lifecycle.Unlock()
		ctrl, err := session.Resume(ctx, s.deps.Persistence, s.sessionOptions()...)
		if err != nil {
			s.respondError(c, err)
			return
		}
		s.install(ctrl)
		c.JSON(http.StatusOK, viewOf(ctrl.State()))
		return
	}

	qs, err := decodeQuizData(req.QuizData, req.Difficulty)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid quiz data: "+err.Error())
		return
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if err := s.teardown(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear previous session")
	}
	ctrl, err := session.New(ctx, qs, s.sessionOptions()...)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.install(ctrl)
	c.JSON(http.StatusCreated, viewOf(ctrl.State()))
}

// decodeQuizData validates client-supplied quiz data. An explicit
// difficulty wins over the embedded one; medium is the default.
func decodeQuizData(raw json.RawMessage, difficulty string) (*quiz.QuestionSet, error) {
	qs, err := schema.DecodeQuestionSet(raw)
	if err != nil {
		return nil, err
	}
	if difficulty == "" {
		difficulty = string(qs.Difficulty)
	}
	if qs.Difficulty, err = quiz.ParseDifficulty(difficulty); err != nil {
		return nil, err
	}
	return qs, nil
}

// getSession handles GET /api/session.
func (s *Server) getSession(c *gin.Context) {
	ctrl := s.current()
	if ctrl == nil {
		s.respondError(c, errNoSession)
		return
	}
	c.JSON(http.StatusOK, viewOf(ctrl.State()))
}

// deleteSession handles DELETE /api/session.
func (s *Server) deleteSession(c *gin.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if err := s.teardown(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// selectAnswer handles POST /api/session/answer.
func (s *Server) selectAnswer(c *gin.Context) {
	var req answerRequest
	if !bind(c, &req) {
		return
	}
	s.withSession(c, func(ctrl *session.Controller) (session.State, error) {
		return ctrl.SelectAnswer(c.Request.Context(), *req.OptionIndex)
	})
}

func (s *Server) goNext(c *gin.Context) {
	s.withSession(c, (*session.Controller).GoNext)
}

func (s *Server) goPrevious(c *gin.Context) {
	s.withSession(c, (*session.Controller).GoPrevious)
}

// submitSession handles POST /api/session/submit. With fromLast set the
// request is refused away from the final question.
func (s *Server) submitSession(c *gin.Context) {
	var req submitRequest
	if c.Request.ContentLength != 0 {
		if !bind(c, &req) {
			return
		}
	}
	s.withSession(c, func(ctrl *session.Controller) (session.State, error) {
		if req.FromLast {
			return ctrl.SubmitFromLast(c.Request.Context())
		}
		return ctrl.Submit(c.Request.Context())
	})
}

// analyzeSession handles POST /api/session/analysis. It reads the stored
// session, so it also works after a restart.
func (s *Server) analyzeSession(c *gin.Context) {
	if ctrl := s.current(); ctrl != nil && !ctrl.State().Submitted() {
		fail(c, http.StatusConflict, "submit the quiz before requesting analysis")
		return
	}
	res, err := s.deps.Pipeline.AnalyzeStored(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.analysisCompleted(c, res)
	c.JSON(http.StatusOK, newAnalyzeResponse(res))
}

func (s *Server) withSession(c *gin.Context, op func(*session.Controller) (session.State, error)) {
	ctrl := s.current()
	if ctrl == nil {
		s.respondError(c, errNoSession)
		return
	}
	st, err := op(ctrl)
	switch {
	case err == nil:
	case rejected(err):
		s.respondError(c, err)
		return
	default:
		// The change was applied but could not be saved.
		s.log.Warn().Err(err).Msg("session change not persisted")
	}
	c.JSON(http.StatusOK, viewOf(st))
}

// rejected reports whether err refused the operation, leaving the session
// unchanged.
func rejected(err error) bool {
	return errors.Is(err, session.ErrAlreadySubmitted) ||
		errors.Is(err, session.ErrClosed) ||
		errors.Is(err, session.ErrIndexOutOfRange) ||
		errors.Is(err, session.ErrNotOnLastQuestion)
}
