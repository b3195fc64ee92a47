package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/resolver"
	"github.com/matzehuels/buckaroo/pkg/source"
)

// RunHeader carries the run ID of a resolve response.
const RunHeader = "X-Buckaroo-Run"

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	Dependencies []string `json:"dependencies"`

	// Progress includes download progress events, which are frequent.
	Progress bool `json:"progress,omitempty"`
}

// Line is one line of a resolve response.
type Line struct {
	Run    string                      `json:"run,omitempty"`
	Event  *event.Envelope             `json:"event,omitempty"`
	Result recipe.ResolvedDependencies `json:"result,omitempty"`
	Order  []recipe.RecipeIdentifier   `json:"order,omitempty"`
	Error  *ErrorBody                  `json:"error,omitempty"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code       errors.Code               `json:"code"`
	Message    string                    `json:"message"`
	Candidates []recipe.RecipeIdentifier `json:"candidates,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}
	deps, err := s.dependencies(req.Dependencies)
	if err != nil {
		s.writeError(w, err)
		return
	}

	run := uuid.NewString()
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set(RunHeader, run)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	write := func(l Line) {
		l.Run = run
		_ = enc.Encode(l)
		_ = rc.Flush()
	}

	task := process.Start(r.Context(), resolver.Resolve(s.cfg.Source, deps, s.cfg.Resolve))
	for e := range task.Events() {
		if !req.Progress {
			if _, ok := event.Unwrap(e).(event.DownloadProgress); ok {
				continue
			}
		}
		env := event.Wrap(e)
		write(Line{Event: &env})
	}
	<-task.Done()

	result, err := task.Result()
	if err != nil {
		s.cfg.Logger.Warn("resolve failed", "run", run, "err", err)
		write(Line{Error: s.errorBody(err)})
		return
	}
	s.cfg.Logger.Info("resolved", "run", run, "packages", len(result))
	write(Line{Result: result, Order: result.Order()})
}

func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipe.NewRecipeIdentifier(chi.URLParam(r, "source"), chi.URLParam(r, "org"), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.cfg.Source.Fetch(id).Run(r.Context(), nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// dependencies parses dependency strings, completing partial identifiers
// with the default source.
func (s *Server) dependencies(raw []string) ([]recipe.Dependency, error) {
	if len(raw) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no dependencies given")
	}
	deps := make([]recipe.Dependency, 0, len(raw))
	for _, str := range raw {
		d, err := recipe.ParseDependency(str)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d.Complete(s.cfg.DefaultSource))
	}
	return deps, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), Line{Error: s.errorBody(err)})
}

func (s *Server) errorBody(err error) *ErrorBody {
	body := &ErrorBody{Code: codeOf(err), Message: errors.UserMessage(err)}
	var notFound *source.RecipeNotFoundError
	if s.cfg.Finder != nil && stderrors.As(err, &notFound) {
		body.Candidates = s.cfg.Finder.FindCandidates(notFound.Identifier)
	}
	return body
}

func codeOf(err error) errors.Code {
	var limited *errors.RateLimitedError
	switch {
	case stderrors.As(err, &limited):
		return limited.Code()
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrCodeTimeout
	}
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}

func statusFor(err error) int {
	switch codeOf(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidIdentifier, errors.ErrCodeInvalidVersion,
		errors.ErrCodeInvalidRange, errors.ErrCodeInvalidManifest, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeRecipeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeFetchRecipe, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
