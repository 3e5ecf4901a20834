package api

import (
	"errors"
	"net/http"
	"priceparser/internal/domain"
	"priceparser/internal/usecase"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type createTaskRequest struct {
	URL string `json:"url" validate:"required,max=1000"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type taskResponse struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Status       domain.TaskStatus `json:"status"`
	ErrorMessage *string           `json:"errorMessage"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func newTaskResponse(t domain.ParsingTask) taskResponse {
	resp := taskResponse{
		ID:        t.ID,
		URL:       t.URL,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.ErrorMessage != "" {
		resp.ErrorMessage = &t.ErrorMessage
	}
	return resp
}

// productResponse renders the price with its two fractional digits.
type productResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Price           string     `json:"price"`
	PublicationDate *time.Time `json:"publicationDate"`
	SourceURL       string     `json:"sourceUrl"`
}

type pageResponse struct {
	Content []productResponse `json:"content"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
	Total   int               `json:"total"`
}

func newPageResponse(p usecase.Page) pageResponse {
	out := pageResponse{
		Content: make([]productResponse, len(p.Content)),
		Page:    p.Page,
		Size:    p.Size,
		Total:   p.Total,
	}
	for i, prod := range p.Content {
		r := productResponse{
			ID:          prod.ID,
			Name:        prod.Name,
			Description: prod.Description,
			Price:       prod.Price.StringFixed(2),
			SourceURL:   prod.SourceURL,
		}
		if !prod.PublicationDate.IsZero() {
			published := prod.PublicationDate
			r.PublicationDate = &published
		}
		out.Content[i] = r
	}
	return out
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	task, err := s.submitter.Submit(r.Context(), req.URL)
	switch {
	case errors.Is(err, domain.ErrEmptyURL), errors.Is(err, domain.ErrURLTooLong):
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to create parsing task")
		s.fail(w, r, http.StatusInternalServerError, "failed to create parsing task")
		return
	}

	log.Ctx(r.Context()).Info().Str("task_id", task.ID).Str("url", task.URL).Msg("parsing task created")
	render.JSON(w, r, newTaskResponse(task))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.submitter.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		s.fail(w, r, http.StatusNotFound, "parsing task not found")
		return
	case err != nil:
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to load parsing task")
		s.fail(w, r, http.StatusInternalServerError, "failed to load parsing task")
		return
	}
	render.JSON(w, r, newTaskResponse(task))
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 0)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "page: "+err.Error())
		return
	}
	size, err := intParam(q.Get("size"), usecase.DefaultPageSize)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "size: "+err.Error())
		return
	}

	result, err := s.query.List(r.Context(), page, size)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to list products")
		s.fail(w, r, http.StatusInternalServerError, "failed to list products")
		return
	}
	render.JSON(w, r, newPageResponse(result))
}

func (s *Server) filterProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.query.Filter(r.Context(), f)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to filter products")
		s.fail(w, r, http.StatusInternalServerError, "failed to filter products")
		return
	}
	render.JSON(w, r, newPageResponse(result))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if _, err := s.submitter.Tasks.Count(r.Context()); err != nil {
		s.fail(w, r, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func parseFilter(r *http.Request) (usecase.ProductFilter, error) {
	q := r.URL.Query()
	f := usecase.ProductFilter{Query: q.Get("q")}

	var err error
	if f.MinPrice, err = decimalParam(q.Get("minPrice")); err != nil {
		return f, errors.New("minPrice: " + err.Error())
	}
	if f.MaxPrice, err = decimalParam(q.Get("maxPrice")); err != nil {
		return f, errors.New("maxPrice: " + err.Error())
	}
	if f.SortBy, err = usecase.ParseSortField(q.Get("sortBy")); err != nil {
		return f, err
	}
	if f.Direction, err = usecase.ParseDirection(q.Get("direction")); err != nil {
		return f, err
	}
	if f.Page, err = intParam(q.Get("page"), 0); err != nil {
		return f, errors.New("page: " + err.Error())
	}
	if f.Size, err = intParam(q.Get("size"), usecase.DefaultPageSize); err != nil {
		return f, errors.New("size: " + err.Error())
	}
	return f, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func decimalParam(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "url must not be blank"
	case "max":
		return "url must be at most " + fe.Param() + " characters"
	}
	return fe.Error()
}
