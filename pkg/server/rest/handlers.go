package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type NavigationService interface {
	ShortestPath(ctx context.Context, srcLat, srcLon, dstLat, dstLon float64, costing string) (*service.RouteSummary, error)
	Snap(ctx context.Context, lat, lon float64) (*service.SnapSummary, error)
}

type NavigationHandler struct {
	svc NavigationService
}

func NavigationRouter(r *chi.Mux, svc NavigationService) {
	handler := &NavigationHandler{svc}

	r.Group(func(r chi.Router) {
		r.Route("/api/navigations", func(r chi.Router) {
			r.Post("/shortest-path", handler.ShortestPath)
			r.Post("/snap", handler.Snap)
		})
	})
}

type Coord struct {
	Lat float64 `json:"lat" validate:"required,lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"required,lt=180,gt=-180"`
}

type ShortestPathRequest struct {
	Source      Coord  `json:"source" validate:"required"`
	Destination Coord  `json:"destination" validate:"required"`
	Costing     string `json:"costing"`
}

func (s *ShortestPathRequest) Bind(r *http.Request) error {
	if s.Source == (Coord{}) || s.Destination == (Coord{}) {
		return errors.New("invalid request")
	}
	return nil
}

type ShortestPathResponse struct {
	Path      string  `json:"path"`
	DistanceM float64 `json:"distance_meters"`
	Cost      float64 `json:"cost"`
	EdgeCount int     `json:"edge_count"`
}

func (h *NavigationHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	data := &ShortestPathRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if rendered := validate(data); rendered != nil {
		render.Render(w, r, rendered)
		return
	}

	route, err := h.svc.ShortestPath(r.Context(),
		data.Source.Lat, data.Source.Lon,
		data.Destination.Lat, data.Destination.Lon,
		data.Costing,
	)
	switch {
	case errors.Is(err, service.ErrNoRoute), errors.Is(err, datastructure.ErrNotFound):
		render.Render(w, r, ErrNotFoundRend(err))
		return
	case errors.Is(err, datastructure.ErrInvalidArgument):
		render.Render(w, r, ErrInvalidRequest(err))
		return
	case err != nil:
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ShortestPathResponse{
		Path:      route.Polyline,
		DistanceM: route.DistanceM,
		Cost:      route.Cost,
		EdgeCount: route.EdgeCount,
	})
}

type SnapRequest struct {
	Lat float64 `json:"lat" validate:"required,lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"required,lt=180,gt=-180"`
}

func (s *SnapRequest) Bind(r *http.Request) error {
	return nil
}

type SnapResponse struct {
	TileID       uint32            `json:"tile_id"`
	LocalID      uint32            `json:"local_id"`
	OffsetFactor float64           `json:"offset_factor"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

func (h *NavigationHandler) Snap(w http.ResponseWriter, r *http.Request) {
	data := &SnapRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if rendered := validate(data); rendered != nil {
		render.Render(w, r, rendered)
		return
	}

	snapped, err := h.svc.Snap(r.Context(), data.Lat, data.Lon)
	switch {
	case errors.Is(err, datastructure.ErrNotFound):
		render.Render(w, r, ErrNotFoundRend(err))
		return
	case err != nil:
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	attrs := make(map[string]string, len(snapped.Attributes))
	for _, attr := range snapped.Attributes {
		attrs[attr.Key] = attr.Value
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &SnapResponse{
		TileID:       snapped.Edge.TileID,
		LocalID:      snapped.Edge.LocalID,
		OffsetFactor: snapped.OffsetFactor,
		Attributes:   attrs,
	})
}

func validate(data any) render.Renderer {
	v := validator.New()
	if err := v.Struct(data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(v, trans)
		vv := translateError(err, trans)
		return ErrValidation(err, vv)
	}
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

// ErrResponse model for every error payload.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrNotFoundRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 404,
		StatusText:     "Not found.",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}
