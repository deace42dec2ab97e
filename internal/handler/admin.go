package handler

import (
	"context"
	"crypto/subtle"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/catalog-insights/internal/cleaning"
	"github.com/iliyamo/catalog-insights/internal/config"
	"github.com/iliyamo/catalog-insights/internal/importer"
	"github.com/iliyamo/catalog-insights/internal/middleware"
	"github.com/iliyamo/catalog-insights/internal/utils"
)

// PipelineRunner produces the cleaned table.
type PipelineRunner interface {
	Run(ctx context.Context) (cleaning.Result, error)
	Rebuild(ctx context.Context) (cleaning.Result, error)
}

// TableImporter loads a cleaned table into the store.
type TableImporter interface {
	Import(ctx context.Context, t *cleaning.Table) (importer.Result, error)
}

// AdminHandler bundles dependencies for the admin endpoints.
type AdminHandler struct {
	Auth     config.AuthConfig
	Pipeline PipelineRunner
	Importer TableImporter
	Logger   *log.Logger

	// one import at a time
	running sync.Mutex
}

func NewAdminHandler(auth config.AuthConfig, p PipelineRunner, im TableImporter, logger *log.Logger) *AdminHandler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &AdminHandler{Auth: auth, Pipeline: p, Importer: im, Logger: logger}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type pipelinePart struct {
	FromCache bool           `json:"from_cache"`
	Rows      int            `json:"rows"`
	Stats     cleaning.Stats `json:"stats"`
}

type importResp struct {
	Pipeline pipelinePart    `json:"pipeline"`
	Import   importer.Result `json:"import"`
}

// Login verifies the admin credentials and returns an access token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Auth.AdminUser)) == 1
	passOK := utils.VerifyPassword(h.Auth.AdminPasswordHash, req.Password)
	if !userOK || !passOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Auth.JWTSecret, h.Auth.AdminUser, utils.RoleAdmin, h.Auth.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Import runs the cleaning pipeline, rebuilding the cached table when
// ?rebuild=true, and imports the result.
func (h *AdminHandler) Import(c echo.Context) error {
	rebuild := false
	if v := c.QueryParam("rebuild"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "rebuild must be a boolean"})
		}
		rebuild = b
	}

	if !h.running.TryLock() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "import already running"})
	}
	defer h.running.Unlock()

	ctx := c.Request().Context()
	run := h.Pipeline.Run
	if rebuild {
		run = h.Pipeline.Rebuild
	}
	pr, err := run(ctx)
	if err != nil {
		h.Logger.Printf("admin: pipeline failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pipeline failed", "message": err.Error()})
	}

	res, err := h.Importer.Import(ctx, pr.Table)
	if err != nil {
		h.Logger.Printf("admin: import failed after %d rows: %v", res.Inserted+res.Skipped, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed", "message": err.Error()})
	}
	h.Logger.Printf("admin: %s imported batch %s (rebuild=%t)", middleware.Subject(c), res.BatchID, rebuild)

	return c.JSON(http.StatusOK, importResp{
		Pipeline: pipelinePart{FromCache: pr.FromCache, Rows: pr.Table.Len(), Stats: pr.Stats},
		Import:   res,
	})
}
