package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/blob"
	"github.com/abhisek/docquiz/internal/events"
	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
)

// pdfMagic opens every PDF file.
var pdfMagic = []byte("%PDF-")

// generateQuiz handles POST /api/generate-quiz.
// Multipart form: pdfFile (required), difficulty (easy|medium|hard).
func (s *Server) generateQuiz(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	file, header, err := c.Request.FormFile("pdfFile")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, "PDF file is too large")
			return
		}
		fail(c, http.StatusBadRequest, "PDF file is required")
		return
	}
	defer file.Close()

	difficulty, err := quiz.ParseDifficulty(c.PostForm("difficulty"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read PDF file")
		return
	}
	if !bytes.HasPrefix(doc, pdfMagic) {
		fail(c, http.StatusBadRequest, "uploaded file is not a PDF")
		return
	}

	ctx := c.Request.Context()

	// A new generation replaces whatever session was in progress.
	s.lifecycle.Lock()
	err = s.teardown(ctx)
	s.lifecycle.Unlock()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to clear previous session")
	}

	archived := s.archive(c, doc)

	qs, err := s.deps.Generator.GenerateQuiz(ctx, generation.QuizInput{
		Document:   doc,
		MIMEType:   llm.MIMETypePDF,
		Difficulty: difficulty,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info().
		Str("file", header.Filename).
		Int("size", len(doc)).
		Int("questions", qs.Len()).
		Str("difficulty", difficulty.String()).
		Msg("quiz generated")

	events.Notify(ctx, s.deps.Publisher, s.log, events.New(events.TypeQuizGenerated, gin.H{
		"difficulty": difficulty,
		"questions":  qs.Len(),
		"document":   archived,
	}))

	c.JSON(http.StatusOK, qs)
}

// archive stores the upload when a blob store is configured and returns
// its key. Failures are logged and do not block generation.
func (s *Server) archive(c *gin.Context, doc []byte) string {
	if s.deps.Blobs == nil {
		return ""
	}
	key := blob.DocumentKey(time.Now(), ".pdf")
	stored, err := s.deps.Blobs.Put(c.Request.Context(), key, bytes.NewReader(doc), int64(len(doc)), llm.MIMETypePDF)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to archive document")
		return ""
	}
	return stored
}

type analyzeRequest struct {
	UserAnswers quiz.AnswerTrace `json:"userAnswers" binding:"required"`
	QuizData    json.RawMessage  `json:"quizData" binding:"required"`
	Difficulty  string           `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

type analyzeResponse struct {
	Score          int              `json:"score"`
	CorrectCount   int              `json:"correctCount"`
	IncorrectCount int              `json:"incorrectCount"`
	TotalQuestions int              `json:"totalQuestions"`
	Unanswered     int              `json:"unansweredCount"`
	Analysis       performanceBlock `json:"analysis"`
}

type performanceBlock struct {
	PerformanceAnalysis *quiz.AnalysisReport `json:"performanceAnalysis"`
}

func newAnalyzeResponse(res *analysis.Result) analyzeResponse {
	return analyzeResponse{
		Score:          res.Summary.ScorePercent,
		CorrectCount:   res.Summary.CorrectCount,
		IncorrectCount: res.Summary.IncorrectCount,
		TotalQuestions: res.Summary.TotalQuestions,
		Unanswered:     res.Summary.UnansweredCount,
		Analysis:       performanceBlock{PerformanceAnalysis: res.Report},
	}
}

// analyzeResults handles POST /api/analyze-results.
func (s *Server) analyzeResults(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "User answers and quiz data are required")
		return
	}

	qs, err := decodeQuizData(req.QuizData, req.Difficulty)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid quiz data: "+err.Error())
		return
	}

	res, err := s.deps.Pipeline.Analyze(c.Request.Context(), qs, req.UserAnswers)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.analysisCompleted(c, res)
	c.JSON(http.StatusOK, newAnalyzeResponse(res))
}

func (s *Server) analysisCompleted(c *gin.Context, res *analysis.Result) {
	events.Notify(c.Request.Context(), s.deps.Publisher, s.log,
		events.New(events.TypeAnalysisCompleted, res.Summary))
}
