package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/delivery/http/middleware"
	"github.com/geobank/registry/internal/domain"
	apperrors "github.com/geobank/registry/internal/pkg/errors"
	"github.com/geobank/registry/internal/pkg/utils"
	"github.com/geobank/registry/internal/pkg/validator"
	"github.com/geobank/registry/internal/proximity"
)

// registerBranchRequest is the wire shape for a registration POST body,
// shape-validated with go-playground/validator before being translated into
// a proximity.RegistrationRequest. Coordinates may be given as posX/posY
// (posX ≡ longitude, posY ≡ latitude) or as longitude/latitude, accepted
// equivalently; both are optional at the struct-tag level since only one
// pair need be present, and 0 is itself a valid coordinate so neither can
// be tagged "required".
type registerBranchRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name" validate:"required,max=100"`
	Address      string   `json:"address" validate:"required,max=255"`
	ContactPhone string   `json:"contactPhone"`
	Type         string   `json:"type" validate:"required"`
	PosX         *float64 `json:"posX"`
	PosY         *float64 `json:"posY"`
	Longitude    *float64 `json:"longitude"`
	Latitude     *float64 `json:"latitude"`
}

func (r registerBranchRequest) resolveLonLat() (lon, lat float64, ok bool) {
	lonPtr := firstNonNil(r.PosX, r.Longitude)
	latPtr := firstNonNil(r.PosY, r.Latitude)
	if lonPtr == nil || latPtr == nil {
		return 0, 0, false
	}
	return *lonPtr, *latPtr, true
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// RegistrationHandler serves the branch registration endpoint.
type RegistrationHandler struct {
	engine *proximity.RegistrationEngine
	logger *zap.Logger
}

// NewRegistrationHandler builds a RegistrationHandler.
func NewRegistrationHandler(engine *proximity.RegistrationEngine, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{engine: engine, logger: logger}
}

// registerBranchResponse is the registration success envelope: `{id, name,
// posX, posY, createdAt}`, plus the richer fields the versioned surface
// also exposes (address, contactPhone, type, status).
type registerBranchResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	ContactPhone string  `json:"contactPhone"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	PosX         float64 `json:"posX"`
	PosY         float64 `json:"posY"`
	CreatedAt    string  `json:"createdAt"`
}

// Register handles POST /api/v1/branches.
func (h *RegistrationHandler) Register(c *fiber.Ctx) error {
	var body registerBranchRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.SendError(c, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"cause": err.Error()}))
	}

	if err := validator.Validate(&body); err != nil {
		return utils.SendError(c, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"cause": err.Error()}))
	}

	lon, lat, ok := body.resolveLonLat()
	if !ok {
		return utils.SendError(c, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "posX/posY"}))
	}

	point, err := domain.NewGeoPoint(lat, lon)
	if err != nil {
		return utils.SendError(c, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "posX/posY", "cause": err.Error()}))
	}

	req := proximity.RegistrationRequest{
		ID:            body.ID,
		Name:          body.Name,
		Address:       body.Address,
		ContactPhone:  body.ContactPhone,
		Location:      point,
		Type:          domain.BranchType(body.Type),
		CorrelationID: middleware.CorrelationID(c),
	}

	branch, err := h.engine.Register(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := registerBranchResponse{
		ID:           branch.ID.String(),
		Name:         branch.Name,
		Address:      branch.Address,
		ContactPhone: branch.ContactPhone,
		Type:         string(branch.Type),
		Status:       string(branch.Status),
		PosX:         branch.Location.Lon(),
		PosY:         branch.Location.Lat(),
		CreatedAt:    branch.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse{Data: resp})
}
