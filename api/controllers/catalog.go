package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/maillot-backend/api/responses"
	"github.com/angelmondragon/maillot-backend/api/validators"
	"github.com/angelmondragon/maillot-backend/internal/catalog"
	"github.com/angelmondragon/maillot-backend/internal/customizations"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

const maxSearchLength = 100

// ProductList serves the filtered, paginated catalog.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}

		filter, err := parseProductFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseProductFilter(r *http.Request) (catalog.ProductFilter, error) {
	q := r.URL.Query()
	filter := catalog.ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Team:     strings.TrimSpace(q.Get("team")),
		Size:     strings.TrimSpace(q.Get("size")),
		Query:    validators.SanitizeString(q.Get("q"), maxSearchLength),
		Sort:     strings.TrimSpace(q.Get("sort")),
	}

	var err error
	if filter.Limit, err = validators.ParseQueryInt(r, "limit", 0, 0, 100); err != nil {
		return filter, err
	}
	if filter.Offset, err = validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return filter, err
	}
	if filter.OnSale, err = validators.ParseQueryBool(r, "on_sale"); err != nil {
		return filter, err
	}
	if filter.Featured, err = validators.ParseQueryBool(r, "featured"); err != nil {
		return filter, err
	}
	return filter, nil
}

func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		product, err := svc.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CategoryList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// TeamList lists teams, optionally narrowed with ?category=<slug>.
func TeamList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		teams, err := svc.ListTeams(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, teams)
	}
}

func ReviewList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		reviews, err := svc.ListReviews(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reviews)
	}
}

func ReviewCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body catalog.ReviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Comment = validators.SanitizeString(body.Comment, 2000)

		review, err := svc.CreateReview(r.Context(), actor.UserID, chi.URLParam(r, "slug"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

// CustomizationList returns the active customization options and their prices.
func CustomizationList(svc customizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("customization service"))
			return
		}
		options, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}
