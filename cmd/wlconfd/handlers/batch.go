package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/wlconf/pkg/api/errors"
	"github.com/opst/wlconf/pkg/audit"
	"github.com/opst/wlconf/pkg/auth"
	"github.com/opst/wlconf/pkg/batch"
)

type Batch interface {
	Run(ctx context.Context, req batch.Request, actor string) batch.Result
}

type BatchRequest struct {
	Resources  []batch.Target  `json:"resources" yaml:"resources"`
	Operation  batch.Operation `json:"operation" yaml:"operation"`
	Parameters map[string]any  `json:"parameters" yaml:"parameters"`
}

// BatchHandler runs a batch operation.
//
// Failures of items are reported in the result. The response is 200 even when all items failed.
func BatchHandler(b Batch, auditor *Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := new(BatchRequest)
		if err := bind(c, body); err != nil {
			return err
		}
		if len(body.Resources) == 0 {
			return apierr.BadRequest(`"resources" should have at least one resource`, nil)
		}
		if body.Operation == "" {
			return apierr.BadRequest(`"operation" is required`, nil)
		}

		result := b.Run(c.Request().Context(), batch.Request{
			Operation:  body.Operation,
			Targets:    body.Resources,
			Parameters: body.Parameters,
		}, auth.ActorOf(c))

		auditor.Record(
			c, audit.OpBatch, fmt.Sprintf("batch/%d_resources", len(body.Resources)), result.Success,
			map[string]any{
				"operation":     string(body.Operation),
				"success_count": result.SuccessCount,
				"failed_count":  result.FailedCount,
			},
		)
		return c.JSON(http.StatusOK, result)
	}
}
