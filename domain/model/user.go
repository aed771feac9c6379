package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims carried by authenticated front-end requests.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
