package httpapi

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/results"
	"github.com/rbright/parley/internal/scoring"
)

type evaluateRequest struct {
	Transcript    string `json:"transcript"`
	InterviewType string `json:"interviewType"`
}

type idResponse struct {
	ID string `json:"id"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (h *handlers) evaluate(c *fiber.Ctx) error {
	if h.deps.Scorer == nil {
		return failure(c, fiber.StatusServiceUnavailable, "Scoring is not configured")
	}
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return failure(c, fiber.StatusBadRequest, "Transcript is required")
	}

	evaluation, err := h.deps.Scorer.Evaluate(c.UserContext(), req.Transcript, req.InterviewType)
	if err != nil {
		if errors.Is(err, interview.ErrUnknownInterviewType) {
			return failure(c, fiber.StatusBadRequest, "Unknown interview type")
		}
		h.logger.Error("evaluation failed", "interview_type", req.InterviewType, "error", err.Error())
		return failure(c, fiber.StatusInternalServerError, "Failed to evaluate interview")
	}
	return c.JSON(evaluation)
}

func (h *handlers) createInterview(c *fiber.Ctx) error {
	if h.deps.Store == nil {
		return failure(c, fiber.StatusServiceUnavailable, "Storage is not configured")
	}
	var draft interview.Draft
	if err := c.BodyParser(&draft); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}

	id, err := h.deps.Store.Create(c.UserContext(), draft)
	if err != nil {
		if errors.Is(err, interview.ErrIntegrity) || errors.Is(err, interview.ErrUnknownInterviewType) {
			return failure(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error("store interview failed", "interview_type", draft.InterviewType, "error", err.Error())
		return failure(c, fiber.StatusInternalServerError, "Failed to store interview")
	}
	return c.JSON(idResponse{ID: id})
}

func (h *handlers) readInterview(c *fiber.Ctx) error {
	if h.deps.Store == nil {
		return failure(c, fiber.StatusServiceUnavailable, "Storage is not configured")
	}
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		return failure(c, fiber.StatusBadRequest, "Interview ID is required")
	}

	record, err := h.deps.Store.Read(c.UserContext(), id)
	switch {
	case errors.Is(err, interview.ErrNotFound):
		return failure(c, fiber.StatusNotFound, "Interview not found")
	case err != nil:
		h.logger.Error("read interview failed", "interview_id", id, "error", err.Error())
		return failure(c, fiber.StatusInternalServerError, "Failed to retrieve interview")
	}
	return c.JSON(record)
}

func (h *handlers) debug(c *fiber.Ctx) error {
	if h.deps.Answerer == nil {
		return failure(c, fiber.StatusServiceUnavailable, "Scoring is not configured")
	}
	var q scoring.Question
	if err := c.BodyParser(&q); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(q.Question) == "" {
		return failure(c, fiber.StatusBadRequest, "Question is required")
	}

	answer, err := h.deps.Answerer.Answer(c.UserContext(), q)
	if err != nil {
		h.logger.Error("debug question failed", "error", err.Error())
		return failure(c, fiber.StatusInternalServerError, "Failed to process debug question")
	}
	return c.JSON(answerResponse{Answer: answer})
}

func (h *handlers) results(c *fiber.Ctx) error {
	if h.deps.Resolver == nil {
		return failure(c, fiber.StatusServiceUnavailable, "Storage is not configured")
	}
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid query")
	}
	target, err := results.ParseTarget(values)
	if err != nil {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}

	view := h.deps.Resolver.Resolve(c.UserContext(), target)
	return c.Status(viewStatus(view.Status)).JSON(view)
}

func viewStatus(status results.Status) int {
	switch status {
	case results.StatusNotFound:
		return fiber.StatusNotFound
	case results.StatusLoadFailed:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusOK
	}
}
