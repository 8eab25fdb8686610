package httpapi

import (
	"net/http"
	"strings"

	"officemap-data/internal/service"

	"go.uber.org/zap"
)

// PeopleHandler 人员查询 Handler（转发到外部人员目录服务）
type PeopleHandler struct {
	people *service.PeopleClient
	logger *zap.Logger
}

// NewPeopleHandler 创建人员查询 Handler
func NewPeopleHandler(people *service.PeopleClient, logger *zap.Logger) *PeopleHandler {
	return &PeopleHandler{
		people: people,
		logger: logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *PeopleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case r.URL.Path == "/map/api/v1/people/search":
		h.Search(w, r)
	case strings.HasPrefix(r.URL.Path, "/map/api/v1/people/"):
		id := strings.TrimPrefix(r.URL.Path, "/map/api/v1/people/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Get(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Search 按姓名/工号搜索
func (h *PeopleHandler) Search(w http.ResponseWriter, r *http.Request) {
	people, err := h.people.SearchPeople(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(people))
}

// Get 按ID查询
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	person, err := h.people.GetPerson(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(person))
}
