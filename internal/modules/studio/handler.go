package studio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/transform"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxBodyBytes caps JSON bodies; maxGenerateBodyBytes leaves room for
	// base64 artwork.
	maxBodyBytes         = 64 << 10
	maxGenerateBodyBytes = 32 << 20
)

var errBadRequest = errors.New("bad request")

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the dashboard API. authn guards every route; nil
// leaves them open.
func (h *Handler) RegisterRoutes(router *chi.Mux, authn func(http.Handler) http.Handler) {
	router.Group(func(r chi.Router) {
		if authn != nil {
			r.Use(authn)
		}

		r.Get("/api/v1/templates", h.list(catalog.KindTemplate))
		r.Post("/api/v1/templates/import", h.importTemplate)
		r.Post("/api/v1/templates/import-shop", h.importShop)
		r.Get("/api/v1/templates/{id}", h.get(catalog.KindTemplate))
		r.Patch("/api/v1/templates/{id}", h.update(catalog.KindTemplate))
		r.Delete("/api/v1/templates/{id}", h.delete(catalog.KindTemplate))

		r.Get("/api/v1/products", h.list(catalog.KindProduct))
		r.Post("/api/v1/products/generate", h.generateProduct)
		r.Post("/api/v1/products/publish-latest", h.publishLatest)
		r.Get("/api/v1/products/{id}", h.get(catalog.KindProduct))
		r.Patch("/api/v1/products/{id}", h.update(catalog.KindProduct))
		r.Delete("/api/v1/products/{id}", h.delete(catalog.KindProduct))
		r.Post("/api/v1/products/{id}/publish", h.publish)
		r.Post("/api/v1/products/{id}/unpublish", h.unpublish)
	})
}

func (h *Handler) list(kind catalog.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}
		listing, err := h.service.List(r.Context(), kind, filter)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]interface{}{
			"items":  listing.Items,
			"total":  listing.Total,
			"limit":  filter.Limit,
			"offset": filter.Offset,
		})
	}
}

func parseFilter(r *http.Request) (catalog.ListFilter, error) {
	q := r.URL.Query()
	filter := catalog.ListFilter{Search: q.Get("search"), Limit: defaultPageSize}
	if raw := q.Get("status"); raw != "" {
		st, err := catalog.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = st
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return filter, errors.Join(errBadRequest, errors.New("limit must be a positive integer"))
		}
		filter.Limit = min(n, maxPageSize)
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.Join(errBadRequest, errors.New("offset must be a non-negative integer"))
		}
		filter.Offset = n
	}
	return filter, nil
}

func (h *Handler) get(kind catalog.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.service.Get(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, doc)
	}
}

func (h *Handler) update(kind catalog.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type request struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Status      *string `json:"status"`
		}

		var req request
		if err := decodeBody(w, r, maxBodyBytes, &req); err != nil {
			respondDecodeError(w, err, "invalid request body")
			return
		}
		update := catalog.CoreUpdate{Title: req.Title, Description: req.Description}
		if req.Status != nil {
			st, err := catalog.ParseStatus(*req.Status)
			if err != nil {
				writeError(w, err)
				return
			}
			update.Status = &st
		}

		doc, err := h.service.Update(r.Context(), kind, chi.URLParam(r, "id"), update)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, doc)
	}
}

func (h *Handler) delete(kind catalog.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) importTemplate(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ExternalID string `json:"external_id"`
	}

	var req request
	if err := decodeBody(w, r, maxBodyBytes, &req); err != nil || req.ExternalID == "" {
		respondDecodeError(w, err, "external_id is required")
		return
	}

	tpl, err := h.service.ImportTemplate(r.Context(), req.ExternalID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, tpl)
}

func (h *Handler) generateProduct(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, maxGenerateBodyBytes, &req); err != nil || req.TemplateID == "" {
		respondDecodeError(w, err, "template_id is required")
		return
	}

	product, err := h.service.GenerateProduct(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, product)
}

func (h *Handler) importShop(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ImportShop(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, report)
}

func (h *Handler) publishLatest(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.PublishLatestDraft(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id, "status": string(catalog.StatusPublished)})
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Publish(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id, "status": string(catalog.StatusPublished)})
}

func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Unpublish(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id, "status": string(catalog.StatusDraft)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
}

// respondDecodeError answers 413 for oversized bodies and 400 with msg
// otherwise.
func respondDecodeError(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respond(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}
	respond(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidStatus),
		errors.Is(err, catalog.ErrMalformedDocument),
		errors.Is(err, transform.ErrTooManyBulletPoints),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	respond(w, status, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
