package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/wlconf/pkg/api/errors"
	"github.com/opst/wlconf/pkg/audit"
	"github.com/opst/wlconf/pkg/auth"
	"github.com/opst/wlconf/pkg/domain"
	"gopkg.in/yaml.v3"
	kubevalidation "k8s.io/apimachinery/pkg/util/validation"
)

// path parameter names
const (
	ParamKind      = "kind"
	ParamNamespace = "namespace"
	ParamName      = "name"
)

// bind decodes the request body into v, as YAML or JSON by its Content-Type.
//
// JSON numbers are kept as json.Number, so that integers are not turned into floats.
func bind(c echo.Context, v any) error {
	req := c.Request()
	if req.Body == nil {
		return apierr.BadRequest("request body is required", nil)
	}

	ctype, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	switch ctype {
	case "application/yaml", "application/x-yaml", "text/yaml":
		if err := yaml.NewDecoder(req.Body).Decode(v); err != nil {
			return apierr.BadRequest("request body should be a valid YAML", err)
		}
	case "", echo.MIMEApplicationJSON:
		dec := json.NewDecoder(req.Body)
		dec.UseNumber()
		if err := dec.Decode(v); err != nil {
			return apierr.BadRequest("request body should be a valid JSON", err)
		}
	default:
		return apierr.NewErrorMessage(
			http.StatusUnsupportedMediaType, "unsupported media type",
			apierr.WithAdvice(`"Content-Type" should be "application/json" or "application/yaml"`),
		)
	}
	return nil
}

// identity reads the resource identified by path parameters.
func identity(c echo.Context) (domain.Identity, error) {
	kind, err := domain.ParseKind(c.Param(ParamKind))
	if err != nil {
		return domain.Identity{}, apierr.FromError(err)
	}
	id := domain.Identity{
		Kind:      kind,
		Namespace: c.Param(ParamNamespace),
		Name:      c.Param(ParamName),
	}
	if errs := kubevalidation.IsDNS1123Label(id.Namespace); len(errs) != 0 {
		return id, apierr.BadRequest(
			fmt.Sprintf("invalid namespace %q: %s", id.Namespace, strings.Join(errs, "; ")), nil,
		)
	}
	if errs := kubevalidation.IsDNS1123Subdomain(id.Name); len(errs) != 0 {
		return id, apierr.BadRequest(
			fmt.Sprintf("invalid resource name %q: %s", id.Name, strings.Join(errs, "; ")), nil,
		)
	}
	return id, nil
}

// Auditor sends outcomes of requests to an audit sink without blocking them.
type Auditor struct {
	sink    audit.Sink
	timeout time.Duration
	logger  *log.Logger

	inflight sync.WaitGroup
}

// NewAuditor creates an Auditor. Each recording is bounded by timeout.
//
// With nil sink, nothing is recorded.
func NewAuditor(sink audit.Sink, timeout time.Duration, logger *log.Logger) *Auditor {
	if logger == nil {
		logger = log.Default()
	}
	return &Auditor{sink: sink, timeout: timeout, logger: logger}
}

// Record sends an entry as the actor of c. The returned channel is closed when sent.
func (a *Auditor) Record(c echo.Context, operation string, resource string, success bool, detail map[string]any) <-chan struct{} {
	if a == nil || a.sink == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	e := audit.NewEntry(operation, resource, auth.ActorOf(c), success, detail)
	a.inflight.Add(1)
	done := audit.Send(c.Request().Context(), a.sink, e, a.timeout, a.logger)
	go func() {
		<-done
		a.inflight.Done()
	}()
	return done
}

// Drain waits for entries being sent, until ctx is done.
//
// Call it after the server stops accepting requests, before closing the sink.
func (a *Auditor) Drain(ctx context.Context) error {
	if a == nil {
		return nil
	}
	drained := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
