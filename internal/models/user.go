package models

import (
	"errors"
	"time"

	"rim/internal/env"
	"rim/internal/permissions"

	sj "github.com/brianvoe/sjwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidToken = errors.New("invalid token")

type User struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username          string             `json:"username" bson:"username"`
	Password          string             `json:"password,omitempty" bson:"password"`
	Name              string             `json:"name" bson:"name"`
	CentralRole       string             `json:"centralRole,omitempty" bson:"centralRole,omitempty"`
	OrganizationRoles map[string]string  `json:"organizationRoles,omitempty" bson:"organizationRoles,omitempty"`
}

type userClaims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) GenToken() string {
	claims, _ := sj.ToClaims(userClaims{ID: u.ID.Hex(), Username: u.Username})
	claims.SetExpiresAt(time.Now().Add(30 * 24 * time.Hour))

	token := claims.Generate(env.JWT_SECRET)
	return token
}

// ParseToken fills ID and Username from a token issued by GenToken.
func (u *User) ParseToken(token string) error {
	if !sj.Verify(token, env.JWT_SECRET) {
		return ErrInvalidToken
	}

	claims, err := sj.Parse(token)
	if err != nil {
		return ErrInvalidToken
	}
	if err := claims.Validate(); err != nil {
		return err
	}

	var c userClaims
	if err := claims.ToStruct(&c); err != nil {
		return err
	}

	id, err := primitive.ObjectIDFromHex(c.ID)
	if err != nil {
		return ErrInvalidToken
	}

	u.ID = id
	u.Username = c.Username
	return nil
}

// Caller is the permission view of the user.
func (u User) Caller() permissions.Caller {
	return permissions.Caller{
		ID:                u.ID.Hex(),
		Name:              u.Name,
		CentralRole:       u.CentralRole,
		OrganizationRoles: u.OrganizationRoles,
	}
}
