package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"officemap-data/internal/domain"
	"officemap-data/internal/service"

	"go.uber.org/zap"
)

// FloorHandler 楼层 Handler（访客只读 + 管理端编辑/发布）
type FloorHandler struct {
	floorService *service.FloorService
	people       *service.PeopleClient // 导出时解析座位人名，可为 nil
	logger       *zap.Logger
}

// NewFloorHandler 创建楼层 Handler
func NewFloorHandler(floorService *service.FloorService, people *service.PeopleClient, logger *zap.Logger) *FloorHandler {
	return &FloorHandler{
		floorService: floorService,
		people:       people,
		logger:       logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *FloorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	// 访客（仅已发布版本）
	case r.URL.Path == "/map/api/v1/floors" && r.Method == http.MethodGet:
		h.ListFloors(w, r, false)
	case strings.HasPrefix(r.URL.Path, "/map/api/v1/floors/") && r.Method == http.MethodGet:
		h.getFloorPath(w, r, strings.TrimPrefix(r.URL.Path, "/map/api/v1/floors/"), false)

	// 管理端（含私有草稿）
	case r.URL.Path == "/admin/api/v1/floors" && r.Method == http.MethodGet:
		h.ListFloors(w, r, true)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/floors/") && r.Method == http.MethodGet:
		h.getFloorPath(w, r, strings.TrimPrefix(r.URL.Path, "/admin/api/v1/floors/"), true)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/floors/") && r.Method == http.MethodPut:
		h.SaveDraft(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/floors/") && r.Method == http.MethodPost:
		h.Publish(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/floors/") && r.Method == http.MethodDelete:
		h.DeleteFloor(w, r)

	// 维护
	case r.URL.Path == "/admin/api/v1/maintenance/orphan-objects" && r.Method == http.MethodPost:
		h.CollectGarbage(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// getFloorPath 解析 {id} / {id}/versions/{v} / {id}/export
func (h *FloorHandler) getFloorPath(w http.ResponseWriter, r *http.Request, rest string, withPrivate bool) {
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		h.GetFloor(w, r, parts[0], withPrivate)
	case len(parts) == 3 && parts[1] == "versions":
		h.GetFloorAtVersion(w, r, parts[0], parseInt(parts[2], -1), withPrivate)
	case len(parts) == 2 && parts[1] == "export" && withPrivate:
		h.ExportFloor(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListFloors 楼层列表（仅元数据）
func (h *FloorHandler) ListFloors(w http.ResponseWriter, r *http.Request, withPrivate bool) {
	ctx := r.Context()
	tenantID := requestTenant(r)

	floors, err := h.floorService.ListFloors(ctx, tenantID, withPrivate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]floorJSON, 0, len(floors))
	for _, f := range floors {
		items = append(items, toFloorJSON(f, false))
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// GetFloor 楼层最新版本（含对象快照）
func (h *FloorHandler) GetFloor(w http.ResponseWriter, r *http.Request, floorID string, withPrivate bool) {
	ctx := r.Context()
	tenantID := requestTenant(r)

	floor, err := h.floorService.GetFloor(ctx, tenantID, floorID, withPrivate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toFloorJSON(floor, true)))
}

// GetFloorAtVersion 楼层指定版本
func (h *FloorHandler) GetFloorAtVersion(w http.ResponseWriter, r *http.Request, floorID string, version int, withPrivate bool) {
	ctx := r.Context()
	tenantID := requestTenant(r)

	floor, err := h.floorService.GetFloorAtVersion(ctx, tenantID, floorID, version, withPrivate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toFloorJSON(floor, true)))
}

// SaveDraft 保存草稿
func (h *FloorHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestTenant(r)
	floorID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/v1/floors/"), "/")

	var req saveFloorRequest
	if err := readBodyJSON(r, 4<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.Floor.BaseVersion == nil {
		writeJSON(w, http.StatusBadRequest, Fail("floor.baseVersion is required"))
		return
	}
	if req.Floor.ID != "" && req.Floor.ID != floorID {
		writeJSON(w, http.StatusBadRequest, Fail("floor id in body does not match path"))
		return
	}

	floor, err := h.floorService.SaveDraft(ctx, service.SaveDraftRequest{
		TenantID:    tenantID,
		Editor:      requestUser(r),
		Floor:       req.Floor.toDomain(floorID),
		BaseVersion: *req.Floor.BaseVersion,
		Delta:       req.toDelta(),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toFloorJSON(floor, true)))
}

// Publish 发布草稿
func (h *FloorHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestTenant(r)

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/v1/floors/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "publish" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	floor, err := h.floorService.Publish(ctx, tenantID, parts[0], requestUser(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toFloorJSON(floor, true)))
}

// DeleteFloor 删除楼层（全部版本）
func (h *FloorHandler) DeleteFloor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestTenant(r)
	floorID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/v1/floors/"), "/")

	if err := h.floorService.DeleteFloor(ctx, tenantID, floorID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": floorID}))
}

// ExportFloor 导出座位表（xlsx）
func (h *FloorHandler) ExportFloor(w http.ResponseWriter, r *http.Request, floorID string) {
	ctx := r.Context()
	tenantID := requestTenant(r)

	floor, err := h.floorService.GetFloor(ctx, tenantID, floorID, true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// 解析座位人名（人员服务不可用时导出仍然可用，只是没有人名列）
	people := map[string]string{}
	if h.people != nil {
		for _, obj := range floor.Objects {
			if obj.PersonID == "" {
				continue
			}
			if _, ok := people[obj.PersonID]; ok {
				continue
			}
			person, err := h.people.GetPerson(ctx, obj.PersonID)
			if err != nil {
				h.logger.Warn("Failed to resolve person for export",
					zap.String("person_id", obj.PersonID), zap.Error(err))
				continue
			}
			people[obj.PersonID] = person.Name
		}
	}

	data, err := GenerateSeatingExport(floor, people)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("%s-v%d.xlsx", floor.Name, floor.Version)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = bytes.NewReader(data).WriteTo(w)
}

// CollectGarbage 孤儿对象回收（维护入口）
func (h *FloorHandler) CollectGarbage(w http.ResponseWriter, r *http.Request) {
	removed, err := h.floorService.CollectGarbage(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed": removed}))
}

// ============================================
// DTO（前端格式）
// ============================================

type floorJSON struct {
	ID         string       `json:"id"`
	Version    int          `json:"version"`
	Name       string       `json:"name"`
	Ord        int          `json:"ord"`
	Image      string       `json:"image,omitempty"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	RealWidth  int          `json:"realWidth"`
	RealHeight int          `json:"realHeight"`
	Public     bool         `json:"public"`
	UpdateBy   string       `json:"updateBy"`
	UpdateAt   time.Time    `json:"updateAt"`
	Objects    []objectJSON `json:"objects,omitempty"`
}

type objectJSON struct {
	ID              string    `json:"id"`
	FloorID         string    `json:"floorId"`
	FloorVersion    int       `json:"floorVersion"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	X               int       `json:"x"`
	Y               int       `json:"y"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	BackgroundColor string    `json:"backgroundColor"`
	FontSize        float64   `json:"fontSize"`
	Color           string    `json:"color"`
	Bold            bool      `json:"bold"`
	URL             string    `json:"url,omitempty"`
	Shape           string    `json:"shape"`
	PersonID        string    `json:"personId,omitempty"`
	ModifiedVersion int       `json:"modifiedVersion"`
	UpdateAt        time.Time `json:"updateAt"`
}

type floorPayload struct {
	ID          string `json:"id"`
	BaseVersion *int   `json:"baseVersion"`
	Name        string `json:"name"`
	Ord         int    `json:"ord"`
	Image       string `json:"image"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RealWidth   int    `json:"realWidth"`
	RealHeight  int    `json:"realHeight"`
}

func (p floorPayload) toDomain(floorID string) *domain.Floor {
	return &domain.Floor{
		ID:         floorID,
		Name:       p.Name,
		Ord:        p.Ord,
		Image:      p.Image,
		Width:      p.Width,
		Height:     p.Height,
		RealWidth:  p.RealWidth,
		RealHeight: p.RealHeight,
	}
}

type saveFloorRequest struct {
	Floor    floorPayload `json:"floor"`
	Added    []objectJSON `json:"added"`
	Modified []struct {
		Old *objectJSON `json:"old"`
		New *objectJSON `json:"new"`
	} `json:"modified"`
	Deleted []struct {
		ID string `json:"id"`
	} `json:"deleted"`
}

func (r saveFloorRequest) toDelta() domain.ObjectsDelta {
	delta := domain.ObjectsDelta{}
	for _, o := range r.Added {
		delta.Added = append(delta.Added, o.toDomain())
	}
	for _, ch := range r.Modified {
		change := domain.ObjectChange{}
		if ch.Old != nil {
			change.Old = ch.Old.toDomain()
		}
		if ch.New != nil {
			change.New = ch.New.toDomain()
		}
		delta.Modified = append(delta.Modified, change)
	}
	for _, d := range r.Deleted {
		delta.Deleted = append(delta.Deleted, d.ID)
	}
	return delta
}

func toFloorJSON(f *domain.Floor, withObjects bool) floorJSON {
	out := floorJSON{
		ID:         f.ID,
		Version:    f.Version,
		Name:       f.Name,
		Ord:        f.Ord,
		Image:      f.Image,
		Width:      f.Width,
		Height:     f.Height,
		RealWidth:  f.RealWidth,
		RealHeight: f.RealHeight,
		Public:     f.Public,
		UpdateBy:   f.UpdateBy,
		UpdateAt:   f.UpdateAt,
	}
	if withObjects {
		out.Objects = make([]objectJSON, 0, len(f.Objects))
		for _, obj := range f.Objects {
			out.Objects = append(out.Objects, toObjectJSON(obj))
		}
	}
	return out
}

func toObjectJSON(o *domain.PlacedObject) objectJSON {
	return objectJSON{
		ID:              o.ID,
		FloorID:         o.FloorID,
		FloorVersion:    o.FloorVersion,
		Name:            o.Name,
		Type:            o.Type,
		X:               o.X,
		Y:               o.Y,
		Width:           o.Width,
		Height:          o.Height,
		BackgroundColor: o.BackgroundColor,
		FontSize:        o.FontSize,
		Color:           o.Color,
		Bold:            o.Bold,
		URL:             o.URL,
		Shape:           o.Shape,
		PersonID:        o.PersonID,
		ModifiedVersion: o.ModifiedVersion,
		UpdateAt:        o.UpdateAt,
	}
}

func (o objectJSON) toDomain() *domain.PlacedObject {
	return &domain.PlacedObject{
		ID:              o.ID,
		FloorID:         o.FloorID,
		FloorVersion:    o.FloorVersion,
		Name:            o.Name,
		Type:            o.Type,
		X:               o.X,
		Y:               o.Y,
		Width:           o.Width,
		Height:          o.Height,
		BackgroundColor: o.BackgroundColor,
		FontSize:        o.FontSize,
		Color:           o.Color,
		Bold:            o.Bold,
		URL:             o.URL,
		Shape:           o.Shape,
		PersonID:        o.PersonID,
		ModifiedVersion: o.ModifiedVersion,
	}
}
