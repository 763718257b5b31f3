package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/reefwatch/sharkmark/internal/catalog"
	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/naming"
)

// SharksHandler serves the shark identity endpoints.
type SharksHandler struct {
	sharks    database.SharkRepository
	suggester *naming.Suggester
}

// NewSharksHandler creates a sharks handler.
func NewSharksHandler(sharks database.SharkRepository, suggester *naming.Suggester) *SharksHandler {
	return &SharksHandler{
		sharks:    sharks,
		suggester: suggester,
	}
}

func toWireShark(s *database.Shark) catalog.Shark {
	return catalog.Shark{
		ID:          s.ID,
		DisplayName: s.DisplayName,
		NameStatus:  s.NameStatus,
	}
}

// List handles GET /sharks. The optional q parameter filters by a
// case-insensitive substring of the display name.
func (h *SharksHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	sharks, err := h.sharks.List(r.Context(), query)
	if err != nil {
		log.Printf("Failed to list sharks: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list sharks")
		return
	}

	wire := make([]catalog.Shark, 0, len(sharks))
	for i := range sharks {
		wire = append(wire, toWireShark(&sharks[i]))
	}
	respondJSON(w, http.StatusOK, wire)
}

// Create handles POST /sharks.
func (h *SharksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body catalog.CreateSharkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if body.DisplayName == "" {
		respondError(w, http.StatusUnprocessableEntity, "display_name must not be empty")
		return
	}

	nameStatus := body.NameStatus
	if nameStatus == "" {
		nameStatus = database.NameStatusTemporary
	}

	shark := database.Shark{
		ID:          uuid.NewString(),
		DisplayName: body.DisplayName,
		NameStatus:  nameStatus,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.sharks.Create(r.Context(), &shark); err != nil {
		log.Printf("Failed to create shark: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create shark")
		return
	}

	respondJSON(w, http.StatusCreated, toWireShark(&shark))
}

// SuggestName handles POST /sharks/suggest-name. It proposes a display
// name not used by any existing shark.
func (h *SharksHandler) SuggestName(w http.ResponseWriter, r *http.Request) {
	used, err := h.sharks.DisplayNames(r.Context())
	if err != nil {
		log.Printf("Failed to load display names: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to suggest name")
		return
	}

	name := h.suggester.Suggest(r.Context(), used)
	respondJSON(w, http.StatusOK, map[string]string{"name": name})
}
