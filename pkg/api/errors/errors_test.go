package errors_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	apierr "github.com/opst/wlconf/pkg/api/errors"
	derr "github.com/opst/wlconf/pkg/domain/errors"
	xe "github.com/opst/wlconf/pkg/errors"
)

func TestFromError(t *testing.T) {
	type when struct {
		err error
	}
	type then struct {
		code   int
		reason string
	}

	for name, testcase := range map[string]struct {
		when
		then
	}{
		"missing is 404": {
			when{err: xe.Wrap(derr.NewMissing("deployment default/web is not found"))},
			then{code: http.StatusNotFound, reason: "deployment default/web is not found"},
		},
		"unsupported is 400": {
			when{err: derr.NewUnsupported("unsupported resource type: job")},
			then{code: http.StatusBadRequest, reason: "unsupported resource type: job"},
		},
		"conflict is 409": {
			when{err: xe.Wrap(derr.NewConflictCausedBy("deployment default/web is modified", errors.New("409")))},
			then{code: http.StatusConflict, reason: "deployment default/web is modified / caused by: 409"},
		},
		"collaborator error is 502": {
			when{err: derr.NewCollaboratorCausedBy("cluster error", errors.New("dial tcp: refused"))},
			then{code: http.StatusBadGateway, reason: "cluster is unavailable"},
		},
		"timeout is 504": {
			when{err: xe.Wrap(context.DeadlineExceeded)},
			then{code: http.StatusGatewayTimeout, reason: "cluster did not respond in time"},
		},
		"others are 500": {
			when{err: errors.New("boom")},
			then{code: http.StatusInternalServerError, reason: "unexpected error"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			herr := apierr.FromError(testcase.when.err)
			if herr.Code != testcase.then.code {
				t.Errorf("code: expected %d, but %d", testcase.then.code, herr.Code)
			}
			msg, ok := herr.Message.(apierr.ErrorMessage)
			if !ok {
				t.Fatalf("unexpected message: %#v", herr.Message)
			}
			if msg.Reason != testcase.then.reason {
				t.Errorf("reason: expected %q, but %q", testcase.then.reason, msg.Reason)
			}
			if !errors.Is(herr, testcase.when.err) {
				t.Errorf("cause is lost: %v", herr)
			}
		})
	}

	t.Run("nil is nil", func(t *testing.T) {
		if herr := apierr.FromError(nil); herr != nil {
			t.Errorf("unexpected error: %v", herr)
		}
	})
}
