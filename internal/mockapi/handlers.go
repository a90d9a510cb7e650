package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/pkg/response"
)

// login handles POST /api/auth/login
func (s *Server) login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := s.data.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserBanned) {
			response.Forbidden(c, "Your account has been banned")
			return
		}
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	s.log.Info("User logged in", "user_id", user.ID, "role", user.Role)
	response.Success(c, dto.LoginResponse{Token: token, User: user})
}

// register handles POST /api/auth/register
func (s *Server) register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleCustomer
	}
	// Admins are seeded, never self-registered
	if !req.Role.IsValid() || req.Role == domain.RoleAdmin {
		response.BadRequest(c, "Role must be CUSTOMER or SELLER")
		return
	}

	user, err := s.data.Register(req)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			response.Conflict(c, "User with this email already exists")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	response.Created(c, "User registered successfully", user)
}

// listMedicines handles GET /api/medicines
func (s *Server) listMedicines(c *gin.Context) {
	response.Success(c, s.data.Medicines(""))
}

// getMedicine handles GET /api/medicines/:id
func (s *Server) getMedicine(c *gin.Context) {
	m, err := s.data.Medicine(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Medicine not found")
		return
	}
	response.Success(c, m)
}

// listCategories handles GET /api/categories
func (s *Server) listCategories(c *gin.Context) {
	response.Success(c, s.data.Categories())
}

// createOrder handles POST /api/orders
func (s *Server) createOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, err := s.data.PlaceOrder(userID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMedicineNotFound):
			response.NotFound(c, "One of the medicines no longer exists")
		case errors.Is(err, ErrInsufficientStock):
			response.Conflict(c, "Not enough stock for one of the medicines")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}

	s.log.Info("Order placed", "order_id", order.ID, "user_id", order.UserID, "total", order.TotalAmount)
	s.publish(c.Request.Context(), order)
	response.Created(c, "Order placed successfully", order)
}

// listOrders handles GET /api/orders
func (s *Server) listOrders(c *gin.Context) {
	response.Success(c, s.data.Orders(OwnedBy(userID(c))))
}

// cancelOrder handles PATCH /api/orders/:id/cancel
func (s *Server) cancelOrder(c *gin.Context) {
	order, err := s.data.Transition(c.Param("id"), domain.OrderStatusCancelled, OwnedBy(userID(c)))
	if err != nil {
		s.transitionError(c, err)
		return
	}
	s.publish(c.Request.Context(), order)
	response.Success(c, order)
}

// adminStats handles GET /api/admin/stats
func (s *Server) adminStats(c *gin.Context) {
	response.Success(c, s.data.Stats(s.config.RecentCount))
}

// adminUsers handles GET /api/admin/users
func (s *Server) adminUsers(c *gin.Context) {
	response.Success(c, s.data.Users())
}

// adminUpdateUser handles PATCH /api/admin/users/:id
func (s *Server) adminUpdateUser(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	id := c.Param("id")
	if id == userID(c) {
		response.BadRequest(c, "You cannot ban your own account")
		return
	}

	user, err := s.data.SetBanned(id, req.IsBanned)
	if err != nil {
		response.NotFound(c, "User not found")
		return
	}
	s.log.Info("User ban updated", "user_id", user.ID, "banned", user.IsBanned)
	response.Success(c, user)
}

// sellerMedicines handles GET /api/seller/medicines
func (s *Server) sellerMedicines(c *gin.Context) {
	response.Success(c, s.data.Medicines(userID(c)))
}

// createMedicine handles POST /api/seller/medicines
func (s *Server) createMedicine(c *gin.Context) {
	var req dto.MedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := s.data.SaveMedicine(userID(c), "", req)
	if err != nil {
		s.medicineError(c, err)
		return
	}
	response.Created(c, "Medicine created successfully", m)
}

// updateMedicine handles PUT /api/seller/medicines/:id
func (s *Server) updateMedicine(c *gin.Context) {
	var req dto.MedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := s.data.SaveMedicine(userID(c), c.Param("id"), req)
	if err != nil {
		s.medicineError(c, err)
		return
	}
	response.Success(c, m)
}

// deleteMedicine handles DELETE /api/seller/medicines/:id
func (s *Server) deleteMedicine(c *gin.Context) {
	if err := s.data.DeleteMedicine(userID(c), c.Param("id")); err != nil {
		s.medicineError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

// sellerOrders handles GET /api/seller/orders
func (s *Server) sellerOrders(c *gin.Context) {
	response.Success(c, s.data.Orders(s.data.SoldBy(userID(c))))
}

// updateOrderStatus handles PATCH /api/seller/orders/:id
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := s.data.Transition(c.Param("id"), req.Status, s.data.SoldBy(userID(c)))
	if err != nil {
		s.transitionError(c, err)
		return
	}
	s.log.Info("Order status updated", "order_id", order.ID, "status", order.Status)
	s.publish(c.Request.Context(), order)
	response.Success(c, order)
}

func (s *Server) medicineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMedicineNotFound):
		response.NotFound(c, "Medicine not found")
	case errors.Is(err, ErrCategoryNotFound):
		response.BadRequest(c, "Category not found")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c, "This medicine belongs to another seller")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func (s *Server) transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrNotOwner):
		response.NotFound(c, "Order not found")
	case errors.Is(err, domain.ErrInvalidStatus):
		response.BadRequest(c, "Unknown order status")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Conflict(c, "Order cannot move to that status")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
