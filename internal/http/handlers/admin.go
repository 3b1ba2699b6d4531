package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
)

// UserAdmin is the provisioning surface exposed to administrators.
type UserAdmin interface {
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (int64, error)
	UpdateUser(ctx context.Context, req dto.UpdateUserRequest) error
	ToggleActive(ctx context.Context, id int64) (models.UserStatus, error)
	DeleteUser(ctx context.Context, id int64) error
	GetUserDetails(ctx context.Context, id int64) (models.UserDetail, error)
	ListUsers(ctx context.Context, search, role string) ([]models.UserSummary, error)
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
}

type AdminHandler struct {
	users  UserAdmin
	logger zerolog.Logger
}

func NewAdminHandler(users UserAdmin, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, logger: logger}
}

// Routes returns the action table served at /api/admin.
func (h *AdminHandler) Routes() http.Handler {
	return actions{logger: h.logger, table: map[string]action{
		"dashboard_stats":  get(h.dashboardStats),
		"get_users":        get(h.listUsers),
		"get_user_details": get(h.userDetails),
		"create_user":      post(h.createUser),
		"update_user":      post(h.updateUser),
		"toggle_status":    post(h.toggleStatus),
		"delete_user":      post(h.deleteUser),
	}}
}

func (h *AdminHandler) dashboardStats(c *call) error {
	stats, err := h.users.DashboardStats(c.r.Context())
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", stats)
	return nil
}

func (h *AdminHandler) listUsers(c *call) error {
	q := c.r.URL.Query()
	users, err := h.users.ListUsers(c.r.Context(), q.Get("search"), q.Get("role"))
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	respond.JSON(c.w, http.StatusOK, "ok", users)
	return nil
}

func (h *AdminHandler) userDetails(c *call) error {
	id, err := c.id()
	if err != nil {
		return err
	}
	detail, err := h.users.GetUserDetails(c.r.Context(), id)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", detail)
	return nil
}

func (h *AdminHandler) createUser(c *call) error {
	var req dto.CreateUserRequest
	if err := c.decode(&req); err != nil {
		return err
	}
	id, err := h.users.CreateUser(c.r.Context(), req)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusCreated, "User created successfully", dto.CreatedResponse{ID: id})
	return nil
}

func (h *AdminHandler) updateUser(c *call) error {
	var req dto.UpdateUserRequest
	if err := c.decode(&req); err != nil {
		return err
	}
	if err := h.users.UpdateUser(c.r.Context(), req); err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "User updated successfully", nil)
	return nil
}

func (h *AdminHandler) toggleStatus(c *call) error {
	id, err := c.id()
	if err != nil {
		return err
	}
	status, err := h.users.ToggleActive(c.r.Context(), id)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "Status updated", dto.ToggleStatusResponse{NewStatus: string(status)})
	return nil
}

func (h *AdminHandler) deleteUser(c *call) error {
	id, err := c.id()
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.r.Context(), id); err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "User deleted successfully", nil)
	return nil
}
