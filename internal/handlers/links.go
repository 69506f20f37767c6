package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minilink/backend/internal/middleware"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/logger"
	"github.com/minilink/backend/pkg/utils"
)

type LinksHandler struct {
	Links *services.LinkService
}

func NewLinksHandler(links *services.LinkService) *LinksHandler {
	return &LinksHandler{Links: links}
}

func (h *LinksHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	links, err := h.Links.List(c.Context(), user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing links")
	}
	return utils.Success(c, fiber.StatusOK, links)
}

type createLinkRequest struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Icon  *string `json:"icon"`
}

func (h *LinksHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.Links.Create(c.Context(), user.ID, req.Title, req.URL, req.Icon)
	if err != nil {
		return serviceError(c, err, "failed creating link")
	}

	logger.InfoWithUser(user.ID.String(), "link_created", map[string]interface{}{
		"link_id": link.ID.String(),
		"title":   link.Title,
	})

	return utils.Success(c, fiber.StatusCreated, link)
}

type updateLinkRequest struct {
	Title    *string `json:"title"`
	URL      *string `json:"url"`
	Icon     *string `json:"icon"`
	IsActive *bool   `json:"isActive"`
	Order    *int    `json:"order"`
}

func (h *LinksHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	linkID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid link id")
	}

	var req updateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.Links.Update(c.Context(), user.ID, linkID, services.LinkUpdate{
		Title:    req.Title,
		URL:      req.URL,
		Icon:     req.Icon,
		IsActive: req.IsActive,
		Position: req.Order,
	})
	if err != nil {
		return serviceError(c, err, "failed updating link")
	}

	return utils.Success(c, fiber.StatusOK, link)
}

func (h *LinksHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	linkID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid link id")
	}

	if err := h.Links.Delete(c.Context(), user.ID, linkID); err != nil {
		return serviceError(c, err, "failed deleting link")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "link deleted"})
}

type reorderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type reorderRequest struct {
	Links []reorderItem `json:"links"`
}

func (h *LinksHandler) Reorder(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Links) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "links array is required")
	}

	items := make([]services.LinkPosition, 0, len(req.Links))
	for _, entry := range req.Links {
		linkID, err := parseUUID(entry.ID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid link id in reorder list")
		}
		items = append(items, services.LinkPosition{ID: linkID, Position: entry.Order})
	}

	if err := h.Links.Reorder(c.Context(), user.ID, items); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reordering links")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "links reordered"})
}
