package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/service"
)

const msgMissingIssueFields = "Please provide title and description"

// IssuesHandler manages issue endpoints. Every route requires a session.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /api/issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	session, err := callerSession(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := bindJSON(c, &req, msgMissingIssueFields); err != nil {
		return err
	}
	issue, err := h.service.Create(c.UserContext(), session.UserID, service.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Severity:    req.Severity,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Issue created successfully", dto.NewIssueResponse(issue))
}

// ListIssues GET /api/issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	if _, err := callerSession(c); err != nil {
		return err
	}
	var query dto.IssueListQuery
	if err := bindQuery(c, &query); err != nil {
		return err
	}
	input := service.ListIssuesInput{
		Status:   query.Status,
		Priority: query.Priority,
		Severity: query.Severity,
		Search:   query.Search,
	}
	if query.Page != nil {
		input.Page = *query.Page
	}
	if query.Limit != nil {
		input.Limit = *query.Limit
	}

	page, err := h.service.List(c.UserContext(), input)
	if err != nil {
		return err
	}
	items := make([]dto.IssueResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewIssueResponse(&page.Items[i]))
	}
	return c.JSON(dto.IssueListResponse{
		Success:     true,
		Count:       len(items),
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Data:        items,
	})
}

// GetIssue GET /api/issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	if _, err := callerSession(c); err != nil {
		return err
	}
	issue, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", dto.NewIssueResponse(issue))
}

// UpdateIssue PUT /api/issues/:id.
func (h *IssuesHandler) UpdateIssue(c *fiber.Ctx) error {
	session, err := callerSession(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := bindJSON(c, &req, msgInvalidBody); err != nil {
		return err
	}
	issue, err := h.service.Update(c.UserContext(), session.UserID, c.Params("id"), service.UpdateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Severity:    req.Severity,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Issue updated successfully", dto.NewIssueResponse(issue))
}

// DeleteIssue DELETE /api/issues/:id.
func (h *IssuesHandler) DeleteIssue(c *fiber.Ctx) error {
	session, err := callerSession(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), session.UserID, c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Issue deleted successfully", fiber.Map{})
}

// Stats GET /api/issues/stats.
func (h *IssuesHandler) Stats(c *fiber.Ctx) error {
	if _, err := callerSession(c); err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", dto.NewIssueStatsResponse(stats))
}

// History GET /api/issues/:id/history.
func (h *IssuesHandler) History(c *fiber.Ctx) error {
	if _, err := callerSession(c); err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", dto.NewIssueHistoryResponse(entries))
}
