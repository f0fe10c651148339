package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/wlconf/pkg/api/errors"
	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
)

type ValidateRequest struct {
	Kind          string         `json:"type" yaml:"type"`
	Configuration map[string]any `json:"configuration" yaml:"configuration"`
}

type ValidateResponse struct {
	Valid            bool      `json:"valid"`
	ValidationErrors []string  `json:"validation_errors"`
	Timestamp        time.Time `json:"timestamp"`
}

func ValidateConfigHandler(conf Configurations, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := new(ValidateRequest)
		if err := bind(c, body); err != nil {
			return err
		}
		kind, err := domain.ParseKind(body.Kind)
		if err != nil {
			return apierr.FromError(err)
		}
		errs, err := conf.ValidateConfiguration(kind, body.Configuration)
		if err != nil {
			return apierr.FromError(err)
		}
		return c.JSON(http.StatusOK, ValidateResponse{
			Valid:            len(errs) == 0,
			ValidationErrors: errs,
			Timestamp:        now(),
		})
	}
}

type DiffRequest struct {
	Original map[string]any `json:"original_config" yaml:"original_config"`
	Updated  map[string]any `json:"updated_config" yaml:"updated_config"`
}

type DiffResponse struct {
	Diff       []conftree.Change `json:"diff"`
	HasChanges bool              `json:"has_changes"`
	Timestamp  time.Time         `json:"timestamp"`
}

func ConfigDiffHandler(conf Configurations, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := new(DiffRequest)
		if err := bind(c, body); err != nil {
			return err
		}
		if body.Original == nil || body.Updated == nil {
			return apierr.BadRequest(`both of "original_config" and "updated_config" are required`, nil)
		}
		diff := conf.Diff(conftree.NormalizeTree(body.Original), conftree.NormalizeTree(body.Updated))
		return c.JSON(http.StatusOK, DiffResponse{
			Diff:       diff,
			HasChanges: len(diff) != 0,
			Timestamp:  now(),
		})
	}
}
