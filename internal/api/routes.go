package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxballot/server/domain/repositories"
	"github.com/voxballot/server/internal/auth"
	"github.com/voxballot/server/internal/websocket"
	"github.com/voxballot/server/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, account *usecase.AccountService, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voxballot-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/voters/login", func(c echo.Context) error {
		return voterLogin(c, account, logger)
	})
	v1.POST("/voters/logout", func(c echo.Context) error {
		return voterLogout(c, account, logger)
	})

	v1.POST("/votes", func(c echo.Context) error {
		return recordVote(c, account, logger)
	})
	v1.GET("/votes/status", func(c echo.Context) error {
		return voteStatus(c, account)
	})

	v1.POST("/verification", func(c echo.Context) error {
		return recordVerification(c, account)
	})
	v1.PUT("/descriptors", func(c echo.Context) error {
		return saveDescriptor(c, account)
	})
	v1.GET("/descriptors", func(c echo.Context) error {
		return listDescriptors(c, account)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

func voterLogin(c echo.Context, account *usecase.AccountService, logger *zap.Logger) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.VoterNumber == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Voter number and secret key are required",
		})
	}

	token, session, err := account.Login(c.Request().Context(), req.VoterNumber, req.SecretKey)
	if err != nil {
		logger.Warn("Voter authentication failed",
			zap.String("voter_number", req.VoterNumber),
			zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid voter credentials",
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		VoterID:   session.VoterID,
	})
}

func voterLogout(c echo.Context, account *usecase.AccountService, logger *zap.Logger) error {
	voterID, err := authenticatedVoter(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := account.Logout(c.Request().Context(), voterID); err != nil {
		logger.Error("Logout failed", zap.String("voter_id", voterID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "logout_failed",
			Message: "Failed to clear session",
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func recordVote(c echo.Context, account *usecase.AccountService, logger *zap.Logger) error {
	voterID, err := authenticatedVoter(c)
	if err != nil {
		return unauthorized(c)
	}

	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.CandidateOrdinal < 1 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_ordinal",
			Message: "Candidate ordinal must be positive",
		})
	}

	record, err := account.RecordVote(c.Request().Context(), voterID, req.CandidateOrdinal, req.CandidateName)
	if err != nil {
		if errors.Is(err, repositories.ErrAlreadyVoted) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "already_voted",
				Message: "This voter has already cast a vote",
			})
		}
		logger.Error("Failed to record vote", zap.String("voter_id", voterID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "vote_failed",
			Message: "Failed to record vote",
		})
	}

	return c.JSON(http.StatusCreated, record)
}

func voteStatus(c echo.Context, account *usecase.AccountService) error {
	voterID, err := authenticatedVoter(c)
	if err != nil {
		return unauthorized(c)
	}

	hasVoted, err := account.HasVoted(c.Request().Context(), voterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "status_failed",
		})
	}
	faceVerified, err := account.IsFaceVerified(c.Request().Context(), voterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "status_failed",
		})
	}

	return c.JSON(http.StatusOK, VoteStatusResponse{
		HasVoted:     hasVoted,
		FaceVerified: faceVerified,
	})
}

func recordVerification(c echo.Context, account *usecase.AccountService) error {
	voterID, err := authenticatedVoter(c)
	if err != nil {
		return unauthorized(c)
	}

	var req VerificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if err := account.MarkFaceVerified(c.Request().Context(), voterID, req.Verified); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "verification_failed",
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func saveDescriptor(c echo.Context, account *usecase.AccountService) error {
	voterID, err := authenticatedVoter(c)
	if err != nil {
		return unauthorized(c)
	}

	var req DescriptorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if len(req.Descriptor) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_descriptor",
			Message: "Descriptor is required",
		})
	}

	if err := account.SaveDescriptor(c.Request().Context(), voterID, req.Descriptor); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "descriptor_failed",
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func listDescriptors(c echo.Context, account *usecase.AccountService) error {
	if _, err := authenticatedVoter(c); err != nil {
		return unauthorized(c)
	}

	descriptors, err := account.Descriptors(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "descriptors_failed",
		})
	}

	return c.JSON(http.StatusOK, descriptors)
}

// authenticatedVoter extracts and validates the JWT, returning the voter ID.
func authenticatedVoter(c echo.Context) (string, error) {
	token := bearerToken(c)
	if token == "" {
		return "", errors.New("missing token")
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		return "", err
	}
	if claims.Role != "voter" || claims.VoterID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.VoterID, nil
}

// bearerToken reads the token from the Authorization header, falling back
// to the token query parameter for WebSocket upgrades, where browsers
// cannot set headers.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return c.QueryParam("token")
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "invalid_token",
		Message: "A valid voter token is required",
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	voterID, err := authenticatedVoter(c)
	if err != nil {
		logger.Warn("WebSocket connection rejected", zap.Error(err))
		return unauthorized(c)
	}

	logger.Info("WebSocket connection authenticated", zap.String("voter_id", voterID))

	return websocket.HandleWebSocketWithAuth(hub, c, voterID, logger)
}
