package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/wlconf/pkg/api/errors"
	"github.com/opst/wlconf/pkg/audit"
	"github.com/opst/wlconf/pkg/auth"
	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	"github.com/opst/wlconf/pkg/engine"
	"github.com/opst/wlconf/pkg/rollback"
)

// Configurations is the configuration engine as seen from handlers.
type Configurations interface {
	Fetch(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error)
	Apply(ctx context.Context, req engine.ApplyRequest) (domain.Result, error)
	Rollback(ctx context.Context, kind domain.Kind, namespace string, name string, rollbackKey string, actor string) (domain.Result, error)
	Rollbacks(kind domain.Kind, namespace string, name string) []rollback.Record
	List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error)
	Refresh(ctx context.Context, kind domain.Kind, namespace string) ([]conftree.Tree, error)
	ValidateConfiguration(kind domain.Kind, proposed conftree.Tree) ([]string, error)
	Diff(original, updated conftree.Tree) []conftree.Change
}

var _ Configurations = &engine.Engine{}

func GetConfigHandler(conf Configurations) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := identity(c)
		if err != nil {
			return err
		}
		tree, err := conf.Fetch(c.Request().Context(), id.Kind, id.Namespace, id.Name)
		if err != nil {
			return apierr.FromError(err)
		}
		return c.JSON(http.StatusOK, tree)
	}
}

type UpdateConfigRequest struct {
	Configuration map[string]any `json:"configuration" yaml:"configuration"`
	DryRun        bool           `json:"dry_run" yaml:"dry_run"`
}

// PutConfigHandler applies a configuration.
//
// Dry run is requested by query `dry_run=true` or by `dry_run` in the body.
// A failed validation is not an HTTP error: it responds a Result with success false.
func PutConfigHandler(conf Configurations, auditor *Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := identity(c)
		if err != nil {
			return err
		}

		body := new(UpdateConfigRequest)
		if err := bind(c, body); err != nil {
			return err
		}
		if body.Configuration == nil {
			return apierr.BadRequest(`"configuration" is required`, nil)
		}
		dryRun := body.DryRun
		if q := c.QueryParam("dry_run"); q != "" {
			b, err := strconv.ParseBool(q)
			if err != nil {
				return apierr.BadRequest(`query "dry_run" should be a boolean`, err)
			}
			dryRun = dryRun || b
		}

		op := audit.OpApply
		if dryRun {
			op = audit.OpDryRun
		}

		result, err := conf.Apply(c.Request().Context(), engine.ApplyRequest{
			Kind:      id.Kind,
			Namespace: id.Namespace,
			Name:      id.Name,
			Proposed:  body.Configuration,
			Actor:     auth.ActorOf(c),
			DryRun:    dryRun,
		})
		if err != nil {
			auditor.Record(c, op, id.String(), false, map[string]any{"error": err.Error()})
			return apierr.FromError(err)
		}
		auditor.Record(c, op, id.String(), result.Success, map[string]any{
			"changes_count":     len(result.AppliedChanges),
			"validation_errors": len(result.ValidationErrors),
			"rollback_key":      result.RollbackKey,
		})
		return c.JSON(http.StatusOK, result)
	}
}

type RollbackRequest struct {
	RollbackKey string `json:"rollback_key" yaml:"rollback_key"`
}

func RollbackHandler(conf Configurations, auditor *Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := identity(c)
		if err != nil {
			return err
		}
		body := new(RollbackRequest)
		if err := bind(c, body); err != nil {
			return err
		}
		if body.RollbackKey == "" {
			return apierr.BadRequest(`"rollback_key" is required`, nil)
		}

		result, err := conf.Rollback(
			c.Request().Context(), id.Kind, id.Namespace, id.Name, body.RollbackKey, auth.ActorOf(c),
		)
		if err != nil {
			auditor.Record(c, audit.OpRollback, id.String(), false, map[string]any{
				"rollback_key": body.RollbackKey, "error": err.Error(),
			})
			return apierr.FromError(err)
		}
		auditor.Record(c, audit.OpRollback, id.String(), result.Success, map[string]any{
			"rollback_key":  body.RollbackKey,
			"changes_count": len(result.AppliedChanges),
		})
		return c.JSON(http.StatusOK, result)
	}
}

type RollbackRecord struct {
	RollbackKey string    `json:"rollback_key"`
	Actor       string    `json:"user"`
	Timestamp   time.Time `json:"timestamp"`
}

func ListRollbacksHandler(conf Configurations) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := identity(c)
		if err != nil {
			return err
		}
		recs := conf.Rollbacks(id.Kind, id.Namespace, id.Name)
		resp := make([]RollbackRecord, 0, len(recs))
		for _, r := range recs {
			resp = append(resp, RollbackRecord{RollbackKey: r.Key, Actor: r.Actor, Timestamp: r.CreatedAt})
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// ListHandler lists configurations of a kind.
//
// Query `namespace` narrows down the namespace, and `labelSelector` filters by labels.
func ListHandler(conf Configurations) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := domain.ParseKind(c.Param(ParamKind))
		if err != nil {
			return apierr.FromError(err)
		}
		items, err := conf.List(
			c.Request().Context(), kind, c.QueryParam("namespace"), c.QueryParam("labelSelector"),
		)
		if err != nil {
			return apierr.FromError(err)
		}
		return c.JSON(http.StatusOK, items)
	}
}
