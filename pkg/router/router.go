package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mitchellh/mapstructure"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs around a handler. It can derive a new context for the
// rest of the chain; returning a nil context keeps the current one.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc always runs after the response is decided, even if a middleware
// rejected the request.
type CloserFunc func(ctx context.Context)

type Router struct {
	ctx context.Context
	mux *http.ServeMux

	befores []MiddlewareFunc
	afters  []MiddlewareFunc
	closers []CloserFunc
}

// New creates a root router. The given context carries everything a request
// needs (db, configs, logger, token engine) and every request context is
// derived from it.
func New(ctx context.Context) *Router {
	return &Router{ctx: ctx, mux: http.NewServeMux()}
}

// Branch returns a router sharing the same mux but with an independent
// middleware chain, so route groups can require different middlewares.
func (r *Router) Branch() *Router {
	branch := &Router{ctx: r.ctx, mux: r.mux}
	branch.befores = append(branch.befores, r.befores...)
	branch.afters = append(branch.afters, r.afters...)
	branch.closers = append(branch.closers, r.closers...)
	return branch
}

func (r *Router) Before(middleware MiddlewareFunc) {
	r.befores = append(r.befores, middleware)
}

func (r *Router) After(middleware MiddlewareFunc) {
	r.afters = append(r.afters, middleware)
}

func (r *Router) AddCloser(closer CloserFunc) {
	r.closers = append(r.closers, closer)
}

func (r *Router) Static(pattern, root string) {
	r.mux.Handle(pattern, http.FileServer(http.Dir(root)))
}

func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	register(r, pattern, http.MethodGet, handler)
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	register(r, pattern, http.MethodPost, handler)
}

func register[Request, Response any](
	r *Router, pattern, method string, handler HandlerFunc[Request, Response],
) {
	befores := r.befores
	afters := r.afters
	closers := r.closers
	baseCtx := r.ctx

	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx := xcontext.WithHTTPRequest(baseCtx, req)
		ctx = xcontext.WithHTTPWriter(ctx, w)
		ctx = xcontext.WithErrorHolder(ctx)
		ctx = xcontext.WithResponseHolder(ctx)

		defer func() {
			for _, closer := range closers {
				closer(ctx)
			}
		}()
		defer handleResponse(ctx)

		if req.Method != method {
			xcontext.SetError(ctx, errorx.New(errorx.BadRequest, "Not supported method %s", req.Method))
			return
		}

		request := new(Request)
		var err error
		switch method {
		case http.MethodGet:
			err = bindQuery(req, request)
		case http.MethodPost:
			err = json.NewDecoder(req.Body).Decode(request)
		}

		if err != nil {
			xcontext.Logger(ctx).Debugf("Cannot bind the request: %v", err)
			xcontext.SetError(ctx, errorx.New(errorx.BadRequest, "Cannot bind the request"))
			return
		}

		for _, m := range befores {
			newCtx, err := m(ctx)
			if err != nil {
				xcontext.SetError(ctx, err)
				return
			}

			if newCtx != nil {
				ctx = newCtx
			}
		}

		resp, err := handler(ctx, request)
		if err != nil {
			xcontext.SetError(ctx, err)
			return
		}

		xcontext.SetResponse(ctx, resp)

		for _, m := range afters {
			newCtx, err := m(ctx)
			if err != nil {
				xcontext.SetError(ctx, err)
				return
			}

			if newCtx != nil {
				ctx = newCtx
			}
		}
	})
}

// bindQuery decodes url query parameters into the request struct reusing the
// json tags, so GET and POST requests share one model definition.
func bindQuery(req *http.Request, target any) error {
	values := map[string]string{}
	for key, value := range req.URL.Query() {
		if len(value) > 0 {
			values[key] = value[0]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(values)
}
