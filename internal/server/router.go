package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/auth"
	"github.com/openfellowship/commons/backend/internal/forum"
	"github.com/openfellowship/commons/backend/internal/geo"
	"github.com/openfellowship/commons/backend/internal/groups"
	"github.com/openfellowship/commons/backend/internal/messaging"
	"github.com/openfellowship/commons/backend/internal/resources"
	"github.com/openfellowship/commons/backend/internal/review"
	"github.com/openfellowship/commons/backend/internal/users"
	"go.uber.org/zap"
)

const principalContextKey = "commons_principal"

var (
	errMissingTelegramVerifier = errors.New("telegram verifier dependency required")
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingReviewService    = errors.New("review service dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// TelegramVerifier validates Telegram Login Widget payloads.
type TelegramVerifier interface {
	Verify(profile auth.TelegramProfile) error
}

// BackendTokenManager issues and validates backend bearer tokens.
type BackendTokenManager interface {
	IssueBackendToken(ctx context.Context, principal auth.Principal) (string, int64, error)
	ValidateToken(token string) (auth.Principal, error)
}

// Dependencies wires the HTTP surface to the domain services. Forum, groups,
// resources, messaging and map services are optional; their routes are only
// mounted when the service is present.
type Dependencies struct {
	TelegramVerifier TelegramVerifier
	TokenManager     BackendTokenManager
	UsersService     *users.Service
	ReviewService    *review.Service
	ForumService     *forum.Service
	GroupsService    *groups.Service
	ResourcesService *resources.Service
	MessagingService *messaging.Service
	GeoService       *geo.Service
	Logger           *zap.Logger
}

// NewHTTPHandler assembles the gin router for the community API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TelegramVerifier == nil {
		return nil, errMissingTelegramVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.ReviewService == nil {
		return nil, errMissingReviewService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		telegram:  deps.TelegramVerifier,
		tokens:    deps.TokenManager,
		users:     deps.UsersService,
		review:    deps.ReviewService,
		forum:     deps.ForumService,
		groups:    deps.GroupsService,
		resources: deps.ResourcesService,
		messaging: deps.MessagingService,
		geo:       deps.GeoService,
		logger:    logger,
	}

	router.POST("/auth/telegram", handler.handleTelegramLogin)
	router.GET("/auth/me", handler.requireAuth, handler.handleCurrentUser)

	handler.mountAboutRoutes(router)
	handler.mountForumRoutes(router)
	handler.mountGroupRoutes(router)
	handler.mountResourceRoutes(router)
	handler.mountMessageRoutes(router)
	handler.mountMapRoutes(router)

	return router, nil
}

type httpHandler struct {
	telegram  TelegramVerifier
	tokens    BackendTokenManager
	users     *users.Service
	review    *review.Service
	forum     *forum.Service
	groups    *groups.Service
	resources *resources.Service
	messaging *messaging.Service
	geo       *geo.Service
	logger    *zap.Logger
}

// requireAuth rejects requests without a valid bearer token.
func (h *httpHandler) requireAuth(c *gin.Context) {
	principal, err := h.principalFromHeader(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	c.Set(principalContextKey, principal)
	c.Next()
}

// optionalAuth attaches a principal when a valid token is present and lets
// anonymous requests through.
func (h *httpHandler) optionalAuth(c *gin.Context) {
	principal, err := h.principalFromHeader(c)
	if err == nil {
		c.Set(principalContextKey, principal)
	}
	c.Next()
}

// requireAdmin rejects authenticated requests from non-admin members.
func (h *httpHandler) requireAdmin(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !principal.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_required"})
		return
	}
	c.Next()
}

func (h *httpHandler) principalFromHeader(c *gin.Context) (auth.Principal, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.Principal{}, errInvalidAuthorization
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return auth.Principal{}, errInvalidAuthorization
	}
	principal, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		return auth.Principal{}, err
	}
	return principal, nil
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return auth.Principal{}, false
	}
	principal, ok := value.(auth.Principal)
	return principal, ok
}

func viewerFrom(c *gin.Context) review.Viewer {
	principal, ok := currentPrincipal(c)
	if !ok {
		return review.Viewer{}
	}
	return review.Viewer{
		ID:            principal.UserID,
		IsAdmin:       principal.IsAdmin,
		Authenticated: true,
	}
}

// respondReviewError translates review service error kinds onto HTTP status
// codes. Internal errors are logged and masked.
func (h *httpHandler) respondReviewError(c *gin.Context, err error) {
	var serviceErr *review.ServiceError
	code := "internal_error"
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}

	switch review.KindOf(err) {
	case review.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": code})
	case review.KindValidation, review.KindInvalidRange:
		c.JSON(http.StatusBadRequest, gin.H{"error": code})
	case review.KindConflict, review.KindInvalidState:
		c.JSON(http.StatusConflict, gin.H{"error": code})
	case review.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": code})
	default:
		h.logger.Error("review request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

type errorStatus struct {
	target error
	status int
}

// respondDomainError walks a sentinel-to-status table and falls back to a
// masked 500 for anything unmapped.
func (h *httpHandler) respondDomainError(c *gin.Context, err error, table []errorStatus) {
	for _, entry := range table {
		if errors.Is(err, entry.target) {
			c.JSON(entry.status, gin.H{"error": entry.target.Error()})
			return
		}
	}
	h.logger.Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
