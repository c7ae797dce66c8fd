package controllers

import (
	"errors"
	"strconv"

	"github.com/collabhub/collabhub-server/notification-service/config"
	"github.com/collabhub/collabhub-server/notification-service/delivery"
	"github.com/collabhub/collabhub-server/notification-service/templates"
	"github.com/collabhub/collabhub-server/utils-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

var standardRoute = utils.JwtMiddlewareConfig{
	ReadFrom: "header",
	Subject:  "access",
	Scopes:   []string{"basic"},
}

type NotificationsController struct {
	fx.In

	Service *delivery.Service
}

// RegisterNotificationsController must run after RegisterSettingsController
// so /notifications/settings is matched before /notifications/:notificationId.
func RegisterNotificationsController(r *utils.Router, config *config.Config, c NotificationsController) {
	v1 := r.Group("/v1")

	v1.Get("/notifications/templates", utils.Protected(standardRoute), c.listTemplates)
	v1.Get("/notifications", utils.Protected(standardRoute), c.listNotifications)
	v1.Post("/users/:userId/notifications", utils.Protected(standardRoute), c.deliverToUser)
	v1.Post("/projects/:projectId/notifications", utils.Protected(standardRoute), c.deliverToProject)
	v1.Patch("/notifications/:notificationId", utils.Protected(standardRoute), c.markRead)
	v1.Patch("/notifications", utils.Protected(standardRoute), c.markAllRead)
}

type deliverConfig struct {
	Type      string                 `json:"type" validate:"required,min=1,max=64"`
	Payload   map[string]interface{} `json:"payload" validate:"required"`
	ProjectId *int64                 `json:"project_id,omitempty"`
}

func (r *NotificationsController) deliverToUser(c *fiber.Ctx) error {
	recipientId, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user id",
		})
	}

	body := new(deliverConfig)
	if err := c.BodyParser(body); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if errs := utils.ValidateStruct(validator.New().Struct(*body)); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	notificationType, err := templates.ParseType(body.Type)
	if err != nil {
		return deliveryError(c, err)
	}

	senderId := c.Locals("user").(int64)

	notification, err := r.Service.DeliverToUser(c.Context(), recipientId, &senderId, notificationType, body.Payload, body.ProjectId)
	if err != nil {
		return deliveryError(c, err)
	}

	if notification == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Delivery suppressed by recipient settings",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(notification)
}

func (r *NotificationsController) deliverToProject(c *fiber.Ctx) error {
	projectId, err := strconv.ParseInt(c.Params("projectId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project id",
		})
	}

	body := new(deliverConfig)
	if err := c.BodyParser(body); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if errs := utils.ValidateStruct(validator.New().Struct(*body)); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	notificationType, err := templates.ParseType(body.Type)
	if err != nil {
		return deliveryError(c, err)
	}

	senderId := c.Locals("user").(int64)

	result, err := r.Service.DeliverToProject(c.Context(), projectId, &senderId, notificationType, body.Payload)
	if err != nil {
		return deliveryError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (r *NotificationsController) listNotifications(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	userId := c.Locals("user").(int64)

	notifications, total, err := r.Service.ListForUser(c.Context(), userId, page, limit)
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":       notifications,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": (total + limit - 1) / limit,
	})
}

type markReadConfig struct {
	Read bool `json:"read"`
}

func (r *NotificationsController) markRead(c *fiber.Ctx) error {
	body := new(markReadConfig)
	if err := c.BodyParser(body); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if !body.Read {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only read=true is supported",
		})
	}

	userId := c.Locals("user").(int64)

	notification, err := r.Service.MarkRead(c.Context(), c.Params("notificationId"), userId)
	if err != nil {
		// Forbidden is reported as not-found so callers cannot probe for
		// other users' notifications.
		if errors.Is(err, delivery.ErrNotFound) || errors.Is(err, delivery.ErrForbidden) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Notification not found",
			})
		}

		return utils.StandardInternalError(c, err)
	}

	return c.JSON(notification)
}

type markAllReadConfig struct {
	MarkAllRead bool `json:"mark_all_read"`
}

func (r *NotificationsController) markAllRead(c *fiber.Ctx) error {
	body := new(markAllReadConfig)
	if err := c.BodyParser(body); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if !body.MarkAllRead {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only mark_all_read=true is supported",
		})
	}

	updated, err := r.Service.MarkAllRead(c.Context(), c.Locals("user").(int64))
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{
		"updated": updated,
	})
}

func (r *NotificationsController) listTemplates(c *fiber.Ctx) error {
	out := make(map[string]fiber.Map)
	for notificationType, fields := range templates.RequiredFields() {
		out[string(notificationType)] = fiber.Map{
			"required": fields,
		}
	}

	return c.JSON(out)
}

func deliveryError(c *fiber.Ctx, err error) error {
	var missing templates.MissingFieldError
	if errors.As(err, &missing) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":         "Invalid payload",
			"missing_field": missing.Field,
		})
	}

	if errors.Is(err, templates.ErrUnknownTemplate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown notification type",
		})
	}

	return utils.StandardInternalError(c, err)
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if len(raw) == 0 {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
