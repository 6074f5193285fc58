package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/config"
	"github.com/geobank/registry/internal/delivery/http/middleware"
	"github.com/geobank/registry/internal/domain"
	apperrors "github.com/geobank/registry/internal/pkg/errors"
	"github.com/geobank/registry/internal/pkg/utils"
	"github.com/geobank/registry/internal/proximity"
)

// ProximityHandler serves the nearest-branches query endpoints: the
// versioned `/api/v1/branches/nearest` surface (primary) and a
// `/desafio/...`-shaped legacy alias, both backed by the same
// proximity.QueryEngine: parse params, validate, call the engine, envelope
// the result.
type ProximityHandler struct {
	engine *proximity.QueryEngine
	search config.SearchConfig
	logger *zap.Logger
}

// NewProximityHandler builds a ProximityHandler. search supplies the
// default/hard-cap radius and result-count values.
func NewProximityHandler(engine *proximity.QueryEngine, search config.SearchConfig, logger *zap.Logger) *ProximityHandler {
	return &ProximityHandler{engine: engine, search: search, logger: logger}
}

// Nearest handles GET /api/v1/branches/nearest. Coordinates may be given as
// lat/lon or as posX/posY (posX ≡ longitude, posY ≡ latitude), accepted
// equivalently.
func (h *ProximityHandler) Nearest(c *fiber.Ctx) error {
	point, err := h.parsePoint(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	radiusKm, err := h.resolveRadius(c.Query("radiusKm"), "radiusKm", h.search.DefaultRadiusKm, h.search.MaxRadiusKm)
	if err != nil {
		return utils.SendError(c, err)
	}
	maxResults, err := h.resolveMaxResults(c.Query("maxResults"), "maxResults", h.search.DefaultMaxResults, h.search.MaxResults)
	if err != nil {
		return utils.SendError(c, err)
	}

	var types []domain.BranchType
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, domain.BranchType(strings.ToUpper(strings.TrimSpace(t))))
		}
	}

	req := proximity.QueryRequest{
		UserLocation:  point,
		RadiusKm:      radiusKm,
		MaxResults:    maxResults,
		BranchTypes:   types,
		ServiceType:   c.Query("service"),
		CorrelationID: middleware.CorrelationID(c),
		SessionID:     c.Get("X-Session-ID"),
	}

	result, err := h.engine.Nearest(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{Total: result.Stats.TotalCandidates})
}

// NearestLegacy handles the `/desafio/...`-shaped distance-query alias:
// query params posX (longitude), posY (latitude), optional limite
// (maxResults, default 10, values above 100 clamped to 100, values below 1
// rejected as invalid input) and optional radius. The
// response preserves the original shape — `posicaoUsuario` plus an
// `agencias` object keyed by branch name, mapping to a "distancia = X km"
// string, in ascending-distance order.
func (h *ProximityHandler) NearestLegacy(c *fiber.Ctx) error {
	lon, lonErr := strconv.ParseFloat(c.Query("posX"), 64)
	lat, latErr := strconv.ParseFloat(c.Query("posY"), 64)
	if lonErr != nil || latErr != nil {
		return utils.SendError(c, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "posX/posY"}))
	}

	point, err := domain.NewGeoPoint(lat, lon)
	if err != nil {
		return utils.SendError(c, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "posX/posY", "cause": err.Error()}))
	}

	limite, err := h.resolveMaxResults(c.Query("limite"), "limite", 10, 100)
	if err != nil {
		return utils.SendError(c, err)
	}

	radiusKm, err := h.resolveRadius(c.Query("radius"), "radius", h.search.DefaultRadiusKm, h.search.MaxRadiusKm)
	if err != nil {
		return utils.SendError(c, err)
	}

	req := proximity.QueryRequest{
		UserLocation:  point,
		RadiusKm:      radiusKm,
		MaxResults:    limite,
		CorrelationID: middleware.CorrelationID(c),
	}

	result, err := h.engine.Nearest(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	agencias := make(orderedStringMap, 0, len(result.Branches))
	for _, bd := range result.Branches {
		agencias = append(agencias, orderedEntry{
			key:   bd.Branch.Name,
			value: fmt.Sprintf("distancia = %.2f km", bd.DistanceKm),
		})
	}

	return c.JSON(legacyNearestResponse{
		PosicaoUsuario: fmt.Sprintf("posX=%g, posY=%g", lon, lat),
		Agencias:       agencias,
	})
}

func (h *ProximityHandler) parsePoint(c *fiber.Ctx) (domain.GeoPoint, error) {
	lonStr := firstNonEmpty(c.Query("posX"), c.Query("lon"))
	latStr := firstNonEmpty(c.Query("posY"), c.Query("lat"))

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.GeoPoint{}, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "lon"})
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.GeoPoint{}, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "lat"})
	}

	point, err := domain.NewGeoPoint(lat, lon)
	if err != nil {
		return domain.GeoPoint{}, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": "lat/lon", "cause": err.Error()})
	}
	return point, nil
}

// resolveRadius applies the default when raw is absent (the query key was
// not sent at all), but treats an explicitly-sent zero or negative value as
// invalid input rather than silently substituting the default — radiusKm=0
// and radiusKm=-1 must be rejected, not quietly coerced.
func (h *ProximityHandler) resolveRadius(raw, field string, defaultKm, maxKm float64) (float64, error) {
	if raw == "" {
		return defaultKm, nil
	}
	radiusKm, err := strconv.ParseFloat(raw, 64)
	if err != nil || radiusKm <= 0 {
		return 0, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": field})
	}
	if maxKm > 0 && radiusKm > maxKm {
		radiusKm = maxKm
	}
	return radiusKm, nil
}

// resolveMaxResults mirrors resolveRadius's absent-vs-explicit-zero
// distinction for the maxResults/limite query params.
func (h *ProximityHandler) resolveMaxResults(raw, field string, defaultN, maxN int) (int, error) {
	if raw == "" {
		return defaultN, nil
	}
	maxResults, err := strconv.Atoi(raw)
	if err != nil || maxResults <= 0 {
		return 0, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{"field": field})
	}
	if maxN > 0 && maxResults > maxN {
		maxResults = maxN
	}
	return maxResults, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// legacyNearestResponse is the `/desafio/...` distance-query response body.
type legacyNearestResponse struct {
	PosicaoUsuario string           `json:"posicaoUsuario"`
	Agencias       orderedStringMap `json:"agencias"`
}

type orderedEntry struct {
	key   string
	value string
}

// orderedStringMap marshals as a JSON object but, unlike map[string]string,
// preserves insertion order rather than sorting keys — needed because
// `agencias` must render in ascending-distance order.
type orderedStringMap []orderedEntry

func (m orderedStringMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
