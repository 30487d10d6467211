package controller

import (
	"github.com/wickeddevsupport/bcgpt-sub008/internal/dto"
	"github.com/wickeddevsupport/bcgpt-sub008/internal/pkg/serverutils"
	"github.com/wickeddevsupport/bcgpt-sub008/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Execute(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type queryController struct {
	queryService service.IQueryService
	usageService service.IUsageService
}

func NewQueryController(queryService service.IQueryService, usageService service.IUsageService) IQueryController {
	return &queryController{
		queryService: queryService,
		usageService: usageService,
	}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/query/v1")
	h.Post("", c.Execute)
	h.Get("stats", serverutils.JwtMiddleware, c.Stats)
}

func (c *queryController) Execute(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.queryService.Execute(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success execute query", res))
}

func (c *queryController) Stats(ctx *fiber.Ctx) error {
	stats := c.usageService.GetStats()
	return ctx.JSON(serverutils.SuccessResponse("Success fetch usage stats", stats))
}
