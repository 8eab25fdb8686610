package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterFloorRoutes 注册楼层路由（访客只读 + 管理端编辑/发布）
func (r *Router) RegisterFloorRoutes(f *FloorHandler) {
	r.HandleHandler("/map/api/v1/floors", f)
	r.HandleHandler("/map/api/v1/floors/", f)
	r.HandleHandler("/admin/api/v1/floors", f)
	r.HandleHandler("/admin/api/v1/floors/", f)
	r.HandleHandler("/admin/api/v1/maintenance/orphan-objects", f)
}

// RegisterPrototypeRoutes 注册模板/调色板路由（管理端）
func (r *Router) RegisterPrototypeRoutes(p *PrototypeHandler) {
	r.HandleHandler("/admin/api/v1/prototypes", p)
	r.HandleHandler("/admin/api/v1/colors", p)
}

// RegisterPeopleRoutes 注册人员查询路由（座位分配对话框）
func (r *Router) RegisterPeopleRoutes(p *PeopleHandler) {
	r.HandleHandler("/map/api/v1/people/search", p)
	r.HandleHandler("/map/api/v1/people/", p)
}

// RegisterHealthRoute 健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
