package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/viktsys/taifexbot/database"
	"github.com/viktsys/taifexbot/ingest"
	"github.com/viktsys/taifexbot/logger"
	"github.com/viktsys/taifexbot/models"
	"github.com/viktsys/taifexbot/taifex"
)

const maxLimit = 60

var badLimitMsg = fmt.Sprintf("limit must be between 1 and %d", maxLimit)

// Reader is the read side of the store.
type Reader interface {
	LatestPositions(ctx context.Context, product string, limit int) ([]models.FuturesPosition, error)
	LatestRatios(ctx context.Context, limit int) ([]models.PCRatio, error)
}

type Inspector interface {
	Inspect(ctx context.Context, source string) (*ingest.Inspection, error)
}

// Deps wires the routes. Webhook and Inspector are optional; their routes
// are only registered when set.
type Deps struct {
	Store     Reader
	Inspector Inspector
	Webhook   gin.HandlerFunc
	Debug     bool
	Log       *logger.Logger
}

type QueryParams struct {
	Product string `form:"product"`
	Limit   int    `form:"limit,default=1" binding:"min=1,max=60"`
}

type handler struct {
	store     Reader
	inspector Inspector
	log       *logger.Logger
}

func (h *handler) latestFutures(c *gin.Context) {
	var params QueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": badLimitMsg})
		return
	}

	product := ""
	if params.Product != "" {
		code, ok := taifex.LookupProduct(params.Product)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown product " + params.Product + ", use TX, MTX or TMF"})
			return
		}
		product = string(code)
	}

	rows, err := h.store.LatestPositions(c.Request.Context(), product, params.Limit*productsPerDay(product))
	if err != nil {
		h.log.Errorw("failed to query positions", "product", product, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query positions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// productsPerDay converts a limit in days to a row limit.
func productsPerDay(product string) int {
	if product != "" {
		return 1
	}
	return len(taifex.Products)
}

func (h *handler) latestRatios(c *gin.Context) {
	var params QueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": badLimitMsg})
		return
	}

	rows, err := h.store.LatestRatios(c.Request.Context(), params.Limit)
	if err != nil {
		h.log.Errorw("failed to query ratios", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ratios"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *handler) debugRaw(c *gin.Context) {
	source := strings.ToLower(c.Param("source"))

	got, err := h.inspector.Inspect(c.Request.Context(), source)
	switch {
	case errors.Is(err, ingest.ErrUnknownSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no archived page for " + source})
		return
	case err != nil:
		h.log.Errorw("failed to inspect raw page", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"page": got.Page}
	if got.ParseErr != nil {
		resp["parse_error"] = got.ParseErr.Error()
	}
	if got.Positions != nil {
		resp["positions"] = got.Positions
	}
	if got.Ratio != nil {
		resp["ratio"] = got.Ratio
	}
	c.JSON(http.StatusOK, resp)
}

func SetupRoutes(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestLogger(deps.Log), gin.Recovery())

	h := &handler{store: deps.Store, inspector: deps.Inspector, log: deps.Log.With("component", "api")}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Webhook != nil {
		r.POST("/callback", deps.Webhook)
	}

	r.GET("/api/futures/latest", h.latestFutures)
	r.GET("/api/pcratio/latest", h.latestRatios)

	if deps.Debug && deps.Inspector != nil {
		r.GET("/api/debug/raw/:source", h.debugRaw)
	}

	return r
}
