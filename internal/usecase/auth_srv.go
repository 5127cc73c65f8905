package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/data/repository"
	"catering-booking/internal/dto/request"
	"catering-booking/internal/dto/response"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest, meta request.SessionMeta) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest, meta request.SessionMeta) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, identity utils.Identity) (*response.UserResponse, error)

	// Admin only
	CreateStaff(ctx context.Context, identity utils.Identity, req *request.CreateStaffRequest) (*response.UserResponse, error)
	ListUsers(ctx context.Context, identity utils.Identity, req *request.ListUsersRequest) (*response.PaginatedResponse[response.UserResponse], error)
	SetUserActive(ctx context.Context, identity utils.Identity, userID string, req *request.SetUserActiveRequest) (*response.UserResponse, error)

	// EnsureBootstrapAdmin creates the configured admin account when it does not exist yet.
	EnsureBootstrapAdmin(ctx context.Context) error
}

type authService struct {
	repo   *repository.Repository // users + sessions
	config *utils.Config
	log    *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest, meta request.SessionMeta) (*response.AuthResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register validation failed", zap.Any("errors", errs))
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Create the account
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Phone, entity.RoleCustomer)
	if err != nil {
		return nil, err
	}

	// 3. Log in right away
	session, err := s.createSession(ctx, user.ID, meta)
	if err != nil {
		s.log.Warn("Failed to create session after register",
			zap.Error(err), zap.String("user_id", user.ID.String()))
		// Continue without a session, the customer can log in
	}

	s.log.Info("User registered", zap.String("user_id", user.ID.String()))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) createUser(ctx context.Context, name, email, password string, phone *string, role entity.UserRole) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.Upstream(err, "check email")
	}
	if existing != nil {
		return nil, utils.Conflict("email already registered")
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, utils.Upstream(err, "process password")
	}

	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hashedPassword,
		Phone:        phone,
		Role:         role,
		IsActive:     true,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Conflict("email already registered")
		}
		return nil, utils.Upstream(err, "create account")
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest, meta request.SessionMeta) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.repo.User.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, utils.Upstream(err, "find user")
	}

	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Invalid login attempt")
		return nil, utils.Unauthorized("invalid email or password")
	}

	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, utils.Forbidden("account is deactivated")
	}

	session, err := s.createSession(ctx, user.ID, meta)
	if err != nil {
		return nil, utils.Upstream(err, "create session")
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return utils.Unauthorized("invalid session token")
	}

	if err := s.repo.Session.Revoke(ctx, tokenUUID); err != nil {
		return utils.Upstream(err, "logout")
	}

	return nil
}

func (s *authService) Me(ctx context.Context, identity utils.Identity) (*response.UserResponse, error) {
	user, err := s.repo.User.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, utils.Upstream(err, "find user")
	}
	if user == nil {
		return nil, utils.NotFound("user not found")
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *authService) CreateStaff(ctx context.Context, identity utils.Identity, req *request.CreateStaffRequest) (*response.UserResponse, error) {
	if !identity.IsAdmin() {
		return nil, utils.Forbidden("admin access required")
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Phone, entity.UserRole(req.Role))
	if err != nil {
		return nil, err
	}

	s.log.Info("Staff account created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", req.Role),
		zap.String("created_by", actorID(identity)))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context, identity utils.Identity, req *request.ListUsersRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	if !identity.IsAdmin() {
		return nil, utils.Forbidden("admin access required")
	}

	role := entity.UserRole(req.Role)
	switch role {
	case "", entity.RoleCustomer, entity.RoleAssistant, entity.RoleAdmin:
	default:
		return nil, utils.BadRequest("unknown role %q", req.Role)
	}

	users, err := s.repo.User.FindAll(ctx, role, req.Limit(), req.Offset())
	if err != nil {
		return nil, utils.Upstream(err, "list users")
	}

	total, err := s.repo.User.CountAll(ctx, role)
	if err != nil {
		return nil, utils.Upstream(err, "count users")
	}

	items := make([]response.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, response.UserToResponse(user))
	}

	return response.NewPaginatedResponse(items, req.CurrentPage(), req.Limit(), total), nil
}

// SetUserActive enables or disables an account. Sessions of a disabled
// account stop authenticating on the next request.
func (s *authService) SetUserActive(ctx context.Context, identity utils.Identity, userID string, req *request.SetUserActiveRequest) (*response.UserResponse, error) {
	if !identity.IsAdmin() {
		return nil, utils.Forbidden("admin access required")
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.BadRequest("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, utils.BadRequest("invalid user ID")
	}

	if id == identity.UserID && !*req.IsActive {
		return nil, utils.Conflict("you cannot deactivate your own account")
	}

	user, err := s.repo.User.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		return nil, utils.Upstream(err, "update user")
	}
	if user == nil {
		return nil, utils.NotFound("user not found")
	}

	s.log.Info("User active flag changed",
		zap.String("user_id", user.ID.String()),
		zap.Bool("active", user.IsActive),
		zap.String("changed_by", actorID(identity)))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *authService) EnsureBootstrapAdmin(ctx context.Context) error {
	cfg := s.config.Bootstrap
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	existing, err := s.repo.User.FindByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return utils.Upstream(err, "check bootstrap admin")
	}
	if existing != nil {
		return nil
	}

	user, err := s.createUser(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, nil, entity.RoleAdmin)
	if err != nil {
		return err
	}

	s.log.Info("Bootstrap admin created", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *authService) createSession(ctx context.Context, userID uuid.UUID, meta request.SessionMeta) (*entity.Session, error) {
	now := time.Now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    userID,
		Token:     utils.GenerateSessionToken(),
		UserAgent: utils.StringPtr(meta.UserAgent),
		IPAddress: utils.StringPtr(meta.IPAddress),
		ExpiresAt: now.Add(time.Duration(s.config.Session.ExpiryHours) * time.Hour),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}
