package httpapi

import (
	"net/http"
	"time"

	"officemap-data/internal/domain"
	"officemap-data/internal/service"

	"go.uber.org/zap"
)

// PrototypeHandler 模板/调色板 Handler（管理端）
type PrototypeHandler struct {
	protoService *service.PrototypeService
	logger       *zap.Logger
}

// NewPrototypeHandler 创建模板/调色板 Handler
func NewPrototypeHandler(protoService *service.PrototypeService, logger *zap.Logger) *PrototypeHandler {
	return &PrototypeHandler{
		protoService: protoService,
		logger:       logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *PrototypeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/admin/api/v1/prototypes" && r.Method == http.MethodGet:
		h.ListPrototypes(w, r)
	case r.URL.Path == "/admin/api/v1/prototypes" && r.Method == http.MethodPut:
		h.SavePrototypes(w, r)
	case r.URL.Path == "/admin/api/v1/colors" && r.Method == http.MethodGet:
		h.ListColors(w, r)
	case r.URL.Path == "/admin/api/v1/colors" && r.Method == http.MethodPut:
		h.SaveColors(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListPrototypes 查询模板集
func (h *PrototypeHandler) ListPrototypes(w http.ResponseWriter, r *http.Request) {
	prototypes, err := h.protoService.ListPrototypes(r.Context(), requestTenant(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]prototypeJSON, 0, len(prototypes))
	for _, p := range prototypes {
		items = append(items, toPrototypeJSON(p))
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// SavePrototypes 全量保存模板集
func (h *PrototypeHandler) SavePrototypes(w http.ResponseWriter, r *http.Request) {
	var payload []prototypeJSON
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	prototypes := make([]*domain.Prototype, 0, len(payload))
	for _, p := range payload {
		prototypes = append(prototypes, p.toDomain())
	}

	saved, err := h.protoService.SavePrototypes(r.Context(), requestTenant(r), prototypes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]prototypeJSON, 0, len(saved))
	for _, p := range saved {
		items = append(items, toPrototypeJSON(p))
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// ListColors 查询调色板
func (h *PrototypeHandler) ListColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.protoService.ListColors(r.Context(), requestTenant(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]colorJSON, 0, len(colors))
	for _, c := range colors {
		items = append(items, toColorJSON(c))
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// SaveColors 全量保存调色板
func (h *PrototypeHandler) SaveColors(w http.ResponseWriter, r *http.Request) {
	var payload []colorJSON
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	colors := make([]*domain.Color, 0, len(payload))
	for _, c := range payload {
		colors = append(colors, c.toDomain())
	}

	saved, err := h.protoService.SaveColors(r.Context(), requestTenant(r), colors)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]colorJSON, 0, len(saved))
	for _, c := range saved {
		items = append(items, toColorJSON(c))
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

type prototypeJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	BackgroundColor string    `json:"backgroundColor"`
	Color           string    `json:"color"`
	FontSize        float64   `json:"fontSize"`
	Shape           string    `json:"shape"`
	Ord             int       `json:"ord"`
	UpdateAt        time.Time `json:"updateAt"`
}

func toPrototypeJSON(p *domain.Prototype) prototypeJSON {
	return prototypeJSON{
		ID:              p.ID,
		Name:            p.Name,
		Width:           p.Width,
		Height:          p.Height,
		BackgroundColor: p.BackgroundColor,
		Color:           p.Color,
		FontSize:        p.FontSize,
		Shape:           p.Shape,
		Ord:             p.Ord,
		UpdateAt:        p.UpdateAt,
	}
}

func (p prototypeJSON) toDomain() *domain.Prototype {
	return &domain.Prototype{
		ID:              p.ID,
		Name:            p.Name,
		Width:           p.Width,
		Height:          p.Height,
		BackgroundColor: p.BackgroundColor,
		Color:           p.Color,
		FontSize:        p.FontSize,
		Shape:           p.Shape,
		Ord:             p.Ord,
	}
}

type colorJSON struct {
	ID       string    `json:"id"`
	Ord      int       `json:"ord"`
	Type     string    `json:"type"`
	Color    string    `json:"color"`
	UpdateAt time.Time `json:"updateAt"`
}

func toColorJSON(c *domain.Color) colorJSON {
	return colorJSON{
		ID:       c.ID,
		Ord:      c.Ord,
		Type:     c.Type,
		Color:    c.Color,
		UpdateAt: c.UpdateAt,
	}
}

func (c colorJSON) toDomain() *domain.Color {
	return &domain.Color{
		ID:    c.ID,
		Ord:   c.Ord,
		Type:  c.Type,
		Color: c.Color,
	}
}
