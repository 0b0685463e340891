package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"go-ecoforum/internal/model"
	"go-ecoforum/pkg/apierror"
)

// TokenService validates access tokens issued by the identity provider. It
// never issues tokens itself.
type TokenService struct {
	jwtSecret []byte
	parser    *jwt.Parser
}

func NewTokenService(jwtSecret string) *TokenService {
	return &TokenService{
		jwtSecret: []byte(jwtSecret),
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired()),
	}
}

func (s *TokenService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}

	subject, _ := claimsMap["sub"].(string)
	userID, err := strconv.ParseInt(strings.TrimSpace(subject), 10, 64)
	if err != nil || userID <= 0 {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{UserID: userID, Type: typ}
	claims.Username, _ = claimsMap["username"].(string)
	role, _ := claimsMap["role"].(string)
	claims.Role = model.Role(strings.ToLower(role))
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.Role == "" {
		claims.Role = model.RoleMember
	}

	return claims, nil
}
