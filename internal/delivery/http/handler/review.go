package handler

import (
	"errors"
	"net/http"

	"github.com/storehaus/review-engine/internal/delivery/http/middleware"
	"github.com/storehaus/review-engine/internal/delivery/http/request"
	"github.com/storehaus/review-engine/internal/delivery/http/response"
	"github.com/storehaus/review-engine/internal/domain"
	"github.com/storehaus/review-engine/internal/pkg/logger"
	"github.com/storehaus/review-engine/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for reviews, likes and replies
type ReviewHandler struct {
	service *review.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=1"`
}

// CreateReplyRequest represents the request body for replying to a review
type CreateReplyRequest struct {
	Comment string `json:"comment" validate:"required,min=1"`
}

// Create handles POST /api/v1/products/:id/reviews
// @Summary Submit a review
// @Description Submit a review for a product. A user may review a product at most once. Updates the product's rating and review count.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID (UUID)"
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body or already reviewed"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), review.CreateReviewInput{
		ProductID: productID,
		UserID:    identity.UserID,
		UserName:  identity.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// GetByProductID handles GET /api/v1/products/:id/reviews
// @Summary Get reviews for a product
// @Description Get a paginated list of reviews for a product, newest first, with likes and replies. Results are cached.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 400 {object} map[string]string "Invalid product ID"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews [get]
func (h *ReviewHandler) GetByProductID(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	limit, offset := request.GetPaginationParams(r)

	reviews, total, err := h.service.GetByProductID(r.Context(), productID, limit, offset)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, reviews, total, limit, offset)
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Description Remove a review (administrative). The product's rating and review count are recomputed from the surviving reviews.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 204 "Review deleted successfully"
// @Failure 400 {object} map[string]string "Invalid review ID"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// ToggleLike handles POST /api/v1/reviews/:id/like
// @Summary Toggle a review like
// @Description Flip the caller's like on a review. Liking your own review is rejected. Returns the updated like set.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "Updated like set"
// @Failure 400 {object} map[string]string "Cannot like own review"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id}/like [post]
func (h *ReviewHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	likes, err := h.service.ToggleLike(r.Context(), id, identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"likes": likes,
	})
}

// CreateReply handles POST /api/v1/reviews/:id/replies
// @Summary Reply to a review
// @Description Append a reply to a review and notify the review's author. Replying to your own review is rejected. Returns the updated reply list.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param reply body CreateReplyRequest true "Reply details"
// @Success 201 {object} map[string]interface{} "Updated reply list"
// @Failure 400 {object} map[string]string "Cannot reply to own review"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id}/replies [post]
func (h *ReviewHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req CreateReplyRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	replies, err := h.service.CreateReply(r.Context(), review.CreateReplyInput{
		ReviewID: id,
		UserID:   identity.UserID,
		UserName: identity.Name,
		Comment:  req.Comment,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"replies": replies,
	})
}

// ToggleReplyLike handles POST /api/v1/reviews/:id/replies/:replyID/like
// @Summary Toggle a reply like
// @Description Flip the caller's like on a reply. Liking your own reply is rejected. Returns the updated like set.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param replyID path string true "Reply ID (UUID)"
// @Success 200 {object} map[string]interface{} "Updated like set"
// @Failure 400 {object} map[string]string "Cannot like own reply"
// @Failure 404 {object} map[string]string "Review or reply not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id}/replies/{replyID}/like [post]
func (h *ReviewHandler) ToggleReplyLike(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	replyID, err := request.GetUUIDParam(r, "replyID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid reply ID")
		return
	}

	likes, err := h.service.ToggleReplyLike(r.Context(), id, replyID, identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"likes": likes,
	})
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review, reply or product not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusBadRequest, "Product already reviewed")
	case errors.Is(err, domain.ErrSelfAction):
		response.Error(w, http.StatusBadRequest, "Cannot like or reply to own content")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
