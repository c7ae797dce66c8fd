package controllers

import (
	"github.com/collabhub/collabhub-server/notification-service/config"
	"github.com/collabhub/collabhub-server/notification-service/repos"
	"github.com/collabhub/collabhub-server/notification-service/templates"
	"github.com/collabhub/collabhub-server/utils-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

type SettingsController struct {
	fx.In

	Repo *repos.SettingsRepo
}

func RegisterSettingsController(r *utils.Router, config *config.Config, c SettingsController) {
	v1 := r.Group("/v1")

	v1.Get("/notifications/settings", utils.Protected(standardRoute), c.getSettings)
	v1.Patch("/notifications/settings", utils.Protected(standardRoute), c.updateSettings)
}

func (r *SettingsController) getSettings(c *fiber.Ctx) error {
	settings, err := r.Repo.ForUser(c.Context(), c.Locals("user").(int64))
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{
		"settings": settings,
	})
}

type updateSettingsConfig struct {
	Settings map[string]bool `json:"settings" validate:"required,gt=0"`
}

func (r *SettingsController) updateSettings(c *fiber.Ctx) error {
	body := new(updateSettingsConfig)
	if err := c.BodyParser(body); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if errs := utils.ValidateStruct(validator.New().Struct(*body)); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	for notificationType := range body.Settings {
		if _, err := templates.ParseType(notificationType); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown notification type: " + notificationType,
			})
		}
	}

	userId := c.Locals("user").(int64)

	if err := r.Repo.Update(c.Context(), userId, body.Settings); err != nil {
		return utils.StandardInternalError(c, err)
	}

	settings, err := r.Repo.ForUser(c.Context(), userId)
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{
		"settings": settings,
	})
}
