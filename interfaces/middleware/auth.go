package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"crosspost/domain/dto"
	"crosspost/domain/model"
)

// Auth validates the bearer JWT and stores the caller's user id in the gin
// context under "user_id".
func Auth(secretKey string) gin.HandlerFunc {
	if secretKey == "" {
		secretKey = os.Getenv("SECRET_KEY")
	}
	unauthorized := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		parts := strings.Split(authorization, "Bearer ")
		if len(parts) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		var claims model.UserClaims
		token, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid {
			res := unauthorized
			res.ResponseMessage = tokenErrorMessage(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		ctx.Set("user_id", claims.Issuer)
		ctx.Next()
	}
}

func tokenErrorMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return "Token expired or not active yet"
		}
	}
	return "Unauthorized"
}
